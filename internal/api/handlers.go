// Package api provides the HTTP API for the webwatch monitoring system,
// implemented with the Gin framework.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"webwatch/internal/api/types"
	"webwatch/internal/cache"
	"webwatch/internal/core"
	"webwatch/internal/stats"
	"webwatch/internal/storage"
)

// Version is the reported build version; overridden at build time.
var Version = "1.0.0"

// Handler serves the system-level and aggregate endpoints.
type Handler struct {
	engine *core.Engine
}

// NewHandler creates the base handler.
func NewHandler(engine *core.Engine) *Handler {
	return &Handler{engine: engine}
}

// AllStats handles GET /api/stats?period=24h|7d and returns the bucketed
// series for every monitor.
func (h *Handler) AllStats(c *gin.Context) {
	period := c.DefaultQuery("period", stats.Period24h)
	if !stats.ValidPeriod(period) {
		types.Abort(c, types.ValidationError("period参数必须是24h或7d"))
		return
	}

	monitors, err := h.engine.Repos().Monitors.List()
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	series := make([]*stats.MonitorStats, 0, len(monitors))
	for _, m := range monitors {
		s, err := h.engine.Stats().Compute(m.ID, m.Name, period)
		if err != nil {
			types.Abort(c, types.DatabaseError())
			return
		}
		series = append(series, s)
	}
	c.JSON(http.StatusOK, types.SuccessResponse(series))
}

// Overview handles GET /api/stats/overview with monitor counts by state.
func (h *Handler) Overview(c *gin.Context) {
	monitors, err := h.engine.Repos().Monitors.List()
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	overview := gin.H{"total": len(monitors), "enabled": 0, "success": 0, "error": 0, "pending": 0}
	enabled, success, errored, pending := 0, 0, 0, 0
	for _, m := range monitors {
		if m.Enabled {
			enabled++
		}
		switch m.Status {
		case storage.StatusSuccess:
			success++
		case storage.StatusError:
			errored++
		default:
			pending++
		}
	}
	overview["enabled"] = enabled
	overview["success"] = success
	overview["error"] = errored
	overview["pending"] = pending
	c.JSON(http.StatusOK, types.SuccessResponse(overview))
}

// SystemInfo handles GET /api/system/info.
func (h *Handler) SystemInfo(c *gin.Context) {
	monitors, err := h.engine.Repos().Monitors.List()
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	enabled := 0
	for _, m := range monitors {
		if m.Enabled {
			enabled++
		}
	}

	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"version":         Version,
		"totalMonitors":   len(monitors),
		"enabledMonitors": enabled,
		"uptime_ms":       h.engine.Uptime().Milliseconds(),
		"scheduler":       h.engine.Scheduler().Status(),
	}))
}

// SystemHealth handles GET /api/system/health. The store is considered
// healthy when a cheap read succeeds.
func (h *Handler) SystemHealth(c *gin.Context) {
	dbStatus := "ok"
	if _, err := h.engine.Repos().Monitors.List(); err != nil {
		dbStatus = "error"
	}

	status := "ok"
	if dbStatus != "ok" || !h.engine.Scheduler().IsRunning() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"status": status,
		"services": gin.H{
			"database": dbStatus,
			"cache":    "ok",
		},
		"scheduler": h.engine.Scheduler().Status(),
	}))
}

// SystemCache handles GET /api/system/cache.
func (h *Handler) SystemCache(c *gin.Context) {
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"cacheSize": h.engine.Cache().Len(),
		"cacheKeys": h.engine.Cache().Keys(),
	}))
}

// SystemCacheClear handles POST /api/system/cache/clear.
func (h *Handler) SystemCacheClear(c *gin.Context) {
	h.engine.Cache().Clear()
	h.engine.Sink().Info("缓存已手动清空")
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"cleared": true}))
}

// SystemScheduler handles GET /api/system/scheduler.
func (h *Handler) SystemScheduler(c *gin.Context) {
	c.JSON(http.StatusOK, types.SuccessResponse(h.engine.Scheduler().Status()))
}

// SystemLogs handles GET /api/system/logs with level/monitor/text filters
// and offset/limit paging. Query results are cached per filter + page.
func (h *Handler) SystemLogs(c *gin.Context) {
	filter := storage.SystemLogFilter{
		Level:     c.Query("level"),
		MonitorID: c.Query("monitor_id"),
		Search:    c.Query("search"),
		Offset:    intQuery(c, "offset", 0),
		Limit:     intQuery(c, "limit", 50),
	}

	cacheKey := fmt.Sprintf("%s_%s_%s_%s_%d_%d",
		cache.KeySystemLogs, filter.Level, filter.MonitorID, filter.Search, filter.Offset, filter.Limit)
	if cached, ok := h.engine.Cache().Get(cacheKey); ok {
		c.JSON(http.StatusOK, types.SuccessResponse(cached))
		return
	}

	entries, total, err := h.engine.Sink().List(filter)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	payload := gin.H{
		"logs":   entries,
		"total":  total,
		"offset": filter.Offset,
		"limit":  filter.Limit,
	}
	h.engine.Cache().Set(cacheKey, payload, cache.TTLSystemLogs)
	c.JSON(http.StatusOK, types.SuccessResponse(payload))
}

// Dashboard serves the admin page shell; the page itself is a passive
// consumer of the JSON API.
func (h *Handler) Dashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(dashboardHTML))
}

// intQuery parses an integer query parameter, falling back to def on a
// missing or malformed value.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 0 {
		return def
	}
	return v
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>网站监控</title>
</head>
<body>
<div id="app">网站监控管理后台 - 请通过 /api 访问接口</div>
</body>
</html>`
