// Package monitors implements the HTTP handlers for monitor management:
// CRUD, live status, probe history, and per-monitor statistics.
package monitors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"webwatch/internal/api/types"
	"webwatch/internal/cache"
	"webwatch/internal/config"
	"webwatch/internal/eventlog"
	"webwatch/internal/stats"
	"webwatch/internal/storage"
)

// defaultHistoryLimit bounds a history page when the client supplies no
// limit.
const defaultHistoryLimit = 50

// Handler serves the monitor endpoints. It owns request parsing and
// validation; persistence and aggregation are delegated.
type Handler struct {
	cfg      config.MonitorConfig
	monitors *storage.MonitorRepo
	history  *storage.HistoryRepo
	stats    *stats.Engine
	cache    *cache.Cache
	sink     *eventlog.Sink
}

// NewHandler creates a monitor handler.
func NewHandler(cfg config.MonitorConfig, repos *storage.Repositories, statsEngine *stats.Engine, c *cache.Cache, sink *eventlog.Sink) *Handler {
	return &Handler{
		cfg:      cfg,
		monitors: repos.Monitors,
		history:  repos.History,
		stats:    statsEngine,
		cache:    c,
		sink:     sink,
	}
}

// List handles GET /api/monitors, served through the config cache.
func (h *Handler) List(c *gin.Context) {
	monitors, err := h.listCached()
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse(monitors))
}

// Create handles POST /api/monitors.
func (h *Handler) Create(c *gin.Context) {
	var req types.MonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.Abort(c, types.ValidationError("请求格式不正确"))
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" || req.URL == nil || strings.TrimSpace(*req.URL) == "" {
		types.Abort(c, types.ValidationError("名称和URL不能为空"))
		return
	}

	now := storage.Now()
	m := &storage.Monitor{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(*req.Name),
		URL:             strings.TrimSpace(*req.URL),
		Method:          http.MethodGet,
		IntervalMinutes: h.cfg.DefaultInterval,
		Enabled:         true,
		Status:          storage.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyRequest(m, &req)

	if err := storage.ValidateMonitor(m, h.cfg.MinInterval, h.cfg.MaxInterval); err != nil {
		types.Abort(c, types.ValidationError(err.Error()))
		return
	}
	if err := h.monitors.Save(m); err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	h.cache.ClearPrefix(cache.KeyAllMonitors)
	h.sink.Info("创建监控项: "+m.Name, eventlog.WithMonitor(m.ID, m.Name))
	c.JSON(http.StatusCreated, types.SuccessResponse(m))
}

// Update handles PUT /api/monitors/:id. The update is partial: supplied
// fields are validated and applied, everything else is preserved.
func (h *Handler) Update(c *gin.Context) {
	m, err := h.monitors.Get(c.Param("id"))
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	if m == nil {
		types.Abort(c, types.NotFoundError("监控项不存在"))
		return
	}

	var req types.MonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.Abort(c, types.ValidationError("请求格式不正确"))
		return
	}
	applyRequest(m, &req)
	m.UpdatedAt = storage.Now()

	if err := storage.ValidateMonitor(m, h.cfg.MinInterval, h.cfg.MaxInterval); err != nil {
		types.Abort(c, types.ValidationError(err.Error()))
		return
	}
	if err := h.monitors.Save(m); err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	h.cache.ClearPrefix(cache.KeyAllMonitors)
	h.sink.Info("更新监控项: "+m.Name, eventlog.WithMonitor(m.ID, m.Name))
	c.JSON(http.StatusOK, types.SuccessResponse(m))
}

// Delete handles DELETE /api/monitors/:id. Deleting a monitor cascades to
// its history records.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	existed, err := h.monitors.Delete(id)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	if !existed {
		types.Abort(c, types.NotFoundError("监控项不存在"))
		return
	}

	h.cache.ClearPrefix(cache.KeyAllMonitors)
	h.sink.Info("删除监控项", eventlog.WithMonitor(id, ""))
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"deleted": true}))
}

// statusEntry is one row of the live status board.
type statusEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Enabled   bool    `json:"enabled"`
	Status    string  `json:"status"`
	LastCheck *string `json:"last_check"`
	LastError *string `json:"last_error"`
}

// Status handles GET /api/monitors/status.
func (h *Handler) Status(c *gin.Context) {
	monitors, err := h.listCached()
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}

	entries := make([]statusEntry, 0, len(monitors))
	for _, m := range monitors {
		entry := statusEntry{
			ID:        m.ID,
			Name:      m.Name,
			Enabled:   m.Enabled,
			Status:    m.Status,
			LastError: m.LastError,
		}
		if entry.Status == "" {
			entry.Status = storage.StatusPending
		}
		if m.LastCheckAt != nil {
			ts := m.LastCheckAt.Format("2006-01-02T15:04:05.000Z07:00")
			entry.LastCheck = &ts
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, types.SuccessResponse(entries))
}

// History handles GET /api/monitors/:id/history?limit=. Pages are cached
// per (monitor, limit) range.
func (h *Handler) History(c *gin.Context) {
	id := c.Param("id")
	m, err := h.monitors.Get(id)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	if m == nil {
		types.Abort(c, types.NotFoundError("监控项不存在"))
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			types.Abort(c, types.ValidationError("limit参数不正确"))
			return
		}
		limit = parsed
	}

	cacheKey := fmt.Sprintf("%s_%s_%d", cache.KeyMonitorHistory, id, limit)
	if cached, ok := h.cache.Get(cacheKey); ok {
		if records, ok := cached.([]*storage.HistoryRecord); ok {
			c.JSON(http.StatusOK, types.SuccessResponse(records))
			return
		}
	}

	records, err := h.history.ListByMonitor(id, limit)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	h.cache.Set(cacheKey, records, cache.TTLHistory)
	c.JSON(http.StatusOK, types.SuccessResponse(records))
}

// Stats handles GET /api/monitors/:id/stats?period=24h|7d.
func (h *Handler) Stats(c *gin.Context) {
	id := c.Param("id")
	m, err := h.monitors.Get(id)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	if m == nil {
		types.Abort(c, types.NotFoundError("监控项不存在"))
		return
	}

	period := c.DefaultQuery("period", stats.Period24h)
	if !stats.ValidPeriod(period) {
		types.Abort(c, types.ValidationError("period参数必须是24h或7d"))
		return
	}

	result, err := h.stats.Compute(m.ID, m.Name, period)
	if err != nil {
		types.Abort(c, types.DatabaseError())
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse(result))
}

// listCached reads the monitor list through the config cache.
func (h *Handler) listCached() ([]*storage.Monitor, error) {
	if cached, ok := h.cache.Get(cache.KeyAllMonitors); ok {
		if monitors, ok := cached.([]*storage.Monitor); ok {
			return monitors, nil
		}
	}
	monitors, err := h.monitors.List()
	if err != nil {
		return nil, err
	}
	h.cache.Set(cache.KeyAllMonitors, monitors, cache.TTLMonitors)
	return monitors, nil
}

// applyRequest copies the supplied fields of a request onto a monitor.
func applyRequest(m *storage.Monitor, req *types.MonitorRequest) {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.URL != nil {
		m.URL = strings.TrimSpace(*req.URL)
	}
	if req.Method != nil {
		m.Method = strings.ToUpper(strings.TrimSpace(*req.Method))
	}
	if req.Cookie != nil {
		m.Cookie = *req.Cookie
	}
	if req.Headers != nil {
		m.Headers = req.Headers
	}
	if req.IntervalMinutes != nil {
		m.IntervalMinutes = *req.IntervalMinutes
	}
	if req.Enabled != nil {
		m.Enabled = *req.Enabled
	}
}
