package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"webwatch/internal/api/types"
	"webwatch/internal/config"
	"webwatch/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "api.db")},
		Auth: config.AuthConfig{
			AdminPassword:    "admin123",
			SessionExpireHrs: 24,
			LockoutMinutes:   15,
			MaxLoginAttempts: 5,
		},
		Monitor: config.MonitorConfig{
			DefaultInterval:   1,
			MinInterval:       1,
			MaxInterval:       60,
			MaxConcurrent:     10,
			RequestTimeoutMs:  2000,
			MaxRetries:        2,
			RetryBaseDelay:    time.Millisecond,
			HistoryRetentionD: 30,
		},
		Maintenance: config.MaintenanceConfig{
			Interval:          time.Hour,
			SystemLogRetentD:  7,
			MaxSystemLogsScan: 100,
		},
		Cache: config.CacheConfig{CleanupInterval: time.Minute},
		Log:   config.LogConfig{Level: "error"},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	engine, err := core.NewEngine(testConfig(t))
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	t.Cleanup(engine.Stop)
	return NewServer(testConfig(t).Server, engine)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Code      int             `json:"code"`
	Timestamp string          `json:"timestamp"`
}

// request performs one API call. A non-empty cookie is attached as the
// session cookie, and state-changing requests carry a same-origin Origin
// header unless origin is "-".
func request(s *Server, method, path, body, cookie, origin string) (*httptest.ResponseRecorder, envelope) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if origin != "-" {
		req.Header.Set("Origin", "http://"+req.Host)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: cookie})
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

// login authenticates and returns the session token from the cookie.
func login(t *testing.T, s *Server) string {
	t.Helper()
	rec, env := request(s, http.MethodPost, "/api/login", `{"password":"admin123"}`, "", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestLoginEndpoint(t *testing.T) {
	s := testServer(t)

	t.Run("Missing origin is rejected", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/login", `{"password":"admin123"}`, "", "-")
		if rec.Code != http.StatusForbidden || env.Success {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("Wrong password", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/login", `{"password":"nope"}`, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if env.Code != types.CodeAuthFailed {
			t.Errorf("expected code 1002, got %d", env.Code)
		}
	})

	t.Run("Empty password", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/login", `{}`, "", "")
		if rec.Code != http.StatusBadRequest || env.Code != types.CodeValidation {
			t.Errorf("expected 400/1001, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("Correct password sets the session cookie", func(t *testing.T) {
		token := login(t, s)
		rec, env := request(s, http.MethodGet, "/api/auth/check", "", token, "")
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("auth check failed: %d", rec.Code)
		}
		var data struct {
			Authenticated bool `json:"authenticated"`
		}
		json.Unmarshal(env.Data, &data)
		if !data.Authenticated {
			t.Error("expected authenticated session")
		}
	})

	t.Run("Cookie attributes", func(t *testing.T) {
		rec, _ := request(s, http.MethodPost, "/api/login", `{"password":"admin123"}`, "", "")
		header := rec.Header().Get("Set-Cookie")
		for _, attr := range []string{"HttpOnly", "Secure", "SameSite=Strict", "Path=/"} {
			if !strings.Contains(header, attr) {
				t.Errorf("cookie missing %s: %s", attr, header)
			}
		}
	})
}

func TestLoginLockoutEndpoint(t *testing.T) {
	s := testServer(t)

	for i := 0; i < 5; i++ {
		rec, env := request(s, http.MethodPost, "/api/login", `{"password":"wrong"}`, "", "")
		if rec.Code != http.StatusUnauthorized || env.Code != types.CodeAuthFailed {
			t.Fatalf("attempt %d: expected 401/1002, got %d/%d", i+1, rec.Code, env.Code)
		}
	}

	rec, env := request(s, http.MethodPost, "/api/login", `{"password":"admin123"}`, "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after lockout, got %d", rec.Code)
	}
	if env.Code != types.CodeRateLimit {
		t.Errorf("expected code 3001, got %d", env.Code)
	}
}

func TestLogout(t *testing.T) {
	s := testServer(t)
	token := login(t, s)

	rec, _ := request(s, http.MethodPost, "/api/logout", "", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout failed: %d", rec.Code)
	}

	rec, env := request(s, http.MethodGet, "/api/monitors", "", token, "")
	if rec.Code != http.StatusUnauthorized || env.Code != types.CodeAuthRequired {
		t.Errorf("expected session to be dead after logout, got %d/%d", rec.Code, env.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := testServer(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/monitors"},
		{http.MethodGet, "/api/monitors/status"},
		{http.MethodGet, "/api/stats"},
		{http.MethodGet, "/api/stats/overview"},
		{http.MethodGet, "/api/system/info"},
		{http.MethodGet, "/api/system/logs"},
	}
	for _, p := range paths {
		rec, env := request(s, p.method, p.path, "", "", "")
		if rec.Code != http.StatusUnauthorized || env.Code != types.CodeAuthRequired {
			t.Errorf("%s %s: expected 401/1003, got %d/%d", p.method, p.path, rec.Code, env.Code)
		}
	}
}

func TestMonitorCRUD(t *testing.T) {
	s := testServer(t)
	token := login(t, s)

	var monitorID string

	t.Run("Create applies defaults", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/monitors",
			`{"name":"s","url":"https://example.test/ok"}`, token, "")
		if rec.Code != http.StatusCreated || !env.Success {
			t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
		}
		var m struct {
			ID              string `json:"id"`
			Method          string `json:"method"`
			IntervalMinutes int    `json:"interval_minutes"`
			Enabled         bool   `json:"enabled"`
			Status          string `json:"status"`
		}
		json.Unmarshal(env.Data, &m)
		if m.Method != "GET" || m.IntervalMinutes != 1 || !m.Enabled || m.Status != "pending" {
			t.Errorf("defaults not applied: %+v", m)
		}
		monitorID = m.ID
	})

	t.Run("Create rejects missing fields", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/monitors", `{"name":"x"}`, token, "")
		if rec.Code != http.StatusBadRequest || env.Code != types.CodeValidation {
			t.Errorf("expected 400/1001, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("Create rejects out-of-range interval", func(t *testing.T) {
		rec, env := request(s, http.MethodPost, "/api/monitors",
			`{"name":"x","url":"https://example.test","interval_minutes":61}`, token, "")
		if rec.Code != http.StatusBadRequest || env.Code != types.CodeValidation {
			t.Errorf("expected 400/1001, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("List includes the monitor", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/monitors", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list failed: %d", rec.Code)
		}
		var monitors []map[string]any
		json.Unmarshal(env.Data, &monitors)
		if len(monitors) != 1 || monitors[0]["id"] != monitorID {
			t.Errorf("unexpected list: %v", monitors)
		}
	})

	t.Run("Partial update preserves other fields", func(t *testing.T) {
		rec, env := request(s, http.MethodPut, "/api/monitors/"+monitorID,
			`{"name":"renamed","interval_minutes":5}`, token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
		}
		var m struct {
			Name            string `json:"name"`
			URL             string `json:"url"`
			IntervalMinutes int    `json:"interval_minutes"`
		}
		json.Unmarshal(env.Data, &m)
		if m.Name != "renamed" || m.IntervalMinutes != 5 {
			t.Errorf("update not applied: %+v", m)
		}
		if m.URL != "https://example.test/ok" {
			t.Errorf("unsupplied field clobbered: %q", m.URL)
		}
	})

	t.Run("Update of unknown id is 404", func(t *testing.T) {
		rec, env := request(s, http.MethodPut, "/api/monitors/unknown", `{"name":"x"}`, token, "")
		if rec.Code != http.StatusNotFound || env.Code != types.CodeNotFound {
			t.Errorf("expected 404/1004, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("Status board lists the monitor", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/monitors/status", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status failed: %d", rec.Code)
		}
		var entries []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		json.Unmarshal(env.Data, &entries)
		if len(entries) != 1 || entries[0].Status != "pending" {
			t.Errorf("unexpected status board: %+v", entries)
		}
	})

	t.Run("History of a fresh monitor is empty", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/monitors/"+monitorID+"/history?limit=10", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("history failed: %d", rec.Code)
		}
		var records []any
		json.Unmarshal(env.Data, &records)
		if len(records) != 0 {
			t.Errorf("expected empty history, got %d", len(records))
		}
	})

	t.Run("Stats validates the period", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/monitors/"+monitorID+"/stats?period=1y", "", token, "")
		if rec.Code != http.StatusBadRequest || env.Code != types.CodeValidation {
			t.Errorf("expected 400/1001, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("Stats returns 24 hourly buckets", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/monitors/"+monitorID+"/stats?period=24h", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("stats failed: %d", rec.Code)
		}
		var stats struct {
			Buckets []any `json:"buckets"`
		}
		json.Unmarshal(env.Data, &stats)
		if len(stats.Buckets) != 24 {
			t.Errorf("expected 24 buckets, got %d", len(stats.Buckets))
		}
	})

	t.Run("Delete removes the monitor", func(t *testing.T) {
		rec, _ := request(s, http.MethodDelete, "/api/monitors/"+monitorID, "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("delete failed: %d", rec.Code)
		}

		rec, env := request(s, http.MethodDelete, "/api/monitors/"+monitorID, "", token, "")
		if rec.Code != http.StatusNotFound || env.Code != types.CodeNotFound {
			t.Errorf("expected 404/1004 on second delete, got %d/%d", rec.Code, env.Code)
		}
	})

	t.Run("State change without origin is rejected", func(t *testing.T) {
		rec, _ := request(s, http.MethodPost, "/api/monitors",
			`{"name":"x","url":"https://example.test"}`, token, "-")
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 without origin, got %d", rec.Code)
		}
	})
}

func TestOverviewAndSystemEndpoints(t *testing.T) {
	s := testServer(t)
	token := login(t, s)

	for i := 0; i < 2; i++ {
		request(s, http.MethodPost, "/api/monitors",
			fmt.Sprintf(`{"name":"s%d","url":"https://example.test/%d","enabled":%t}`, i, i, i == 0), token, "")
	}

	t.Run("Overview counts states", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/stats/overview", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("overview failed: %d", rec.Code)
		}
		var data struct {
			Total   int `json:"total"`
			Enabled int `json:"enabled"`
			Pending int `json:"pending"`
		}
		json.Unmarshal(env.Data, &data)
		if data.Total != 2 || data.Enabled != 1 || data.Pending != 2 {
			t.Errorf("unexpected overview: %+v", data)
		}
	})

	t.Run("System info", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/system/info", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("info failed: %d", rec.Code)
		}
		var data struct {
			Version       string `json:"version"`
			TotalMonitors int    `json:"totalMonitors"`
			UptimeMs      int64  `json:"uptime_ms"`
		}
		json.Unmarshal(env.Data, &data)
		if data.Version == "" || data.TotalMonitors != 2 {
			t.Errorf("unexpected info: %+v", data)
		}
	})

	t.Run("System health", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/system/health", "", token, "")
		if rec.Code != http.StatusOK || !env.Success {
			t.Errorf("health failed: %d", rec.Code)
		}
	})

	t.Run("Cache info and clear", func(t *testing.T) {
		rec, _ := request(s, http.MethodGet, "/api/system/cache", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("cache info failed: %d", rec.Code)
		}

		rec, _ = request(s, http.MethodPost, "/api/system/cache/clear", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("cache clear failed: %d", rec.Code)
		}

		rec, env := request(s, http.MethodGet, "/api/system/cache", "", token, "")
		var data struct {
			CacheSize int `json:"cacheSize"`
		}
		json.Unmarshal(env.Data, &data)
		if data.CacheSize != 0 {
			t.Errorf("expected empty cache after clear, got %d", data.CacheSize)
		}
	})

	t.Run("Scheduler status", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/system/scheduler", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("scheduler status failed: %d", rec.Code)
		}
		var data struct {
			IsRunning      bool  `json:"isRunning"`
			ExecutionCount int64 `json:"executionCount"`
		}
		json.Unmarshal(env.Data, &data)
		if data.IsRunning {
			t.Error("scheduler was never started in this test")
		}
	})

	t.Run("System logs are queryable", func(t *testing.T) {
		rec, env := request(s, http.MethodGet, "/api/system/logs?limit=10", "", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("logs failed: %d", rec.Code)
		}
		var data struct {
			Logs  []any `json:"logs"`
			Total int   `json:"total"`
		}
		json.Unmarshal(env.Data, &data)
		// Monitor creation above wrote INFO entries.
		if data.Total == 0 {
			t.Error("expected system log entries from monitor creation")
		}
	})

	t.Run("Security headers are set", func(t *testing.T) {
		rec, _ := request(s, http.MethodGet, "/api/auth/check", "", "", "")
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing X-Content-Type-Options")
		}
		if rec.Header().Get("X-Frame-Options") != "DENY" {
			t.Error("missing X-Frame-Options")
		}
	})
}

func TestEnvelopeShape(t *testing.T) {
	s := testServer(t)

	rec, env := request(s, http.MethodGet, "/api/auth/check", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("auth check failed: %d", rec.Code)
	}
	if env.Timestamp == "" {
		t.Error("envelope must carry a timestamp")
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", env.Timestamp); err != nil {
		t.Errorf("timestamp not ISO-8601 with milliseconds: %q", env.Timestamp)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}
}
