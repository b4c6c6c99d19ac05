// Package checks implements the HTTP probe executor.
package checks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webwatch/internal/config"
	"webwatch/internal/eventlog"
	"webwatch/internal/storage"
)

// Browser-like default headers sent with every probe. Monitor-level
// headers override these on conflict.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	"Cache-Control":   "no-cache",
}

// Prober executes one-shot HTTP probes against monitor targets.
//
// A probe collapses its retries into exactly one terminal outcome, which
// is appended to history before the probe returns.
type Prober struct {
	client  *http.Client
	cfg     config.MonitorConfig
	history *storage.HistoryRepo
	sink    *eventlog.Sink
}

// NewProber creates a probe executor. The shared client follows redirects
// (the default limit of 10) and carries no client-level timeout; the
// per-probe deadline comes from the probe context.
func NewProber(cfg config.MonitorConfig, history *storage.HistoryRepo, sink *eventlog.Sink) *Prober {
	return &Prober{
		client:  &http.Client{},
		cfg:     cfg,
		history: history,
		sink:    sink,
	}
}

// Execute probes the monitor once and returns the terminal outcome.
//
// The outcome is recorded to history unless ctx was cancelled while the
// probe was in flight, in which case the result is discarded. An invalid
// URL produces an immediate error outcome without a network call.
func (p *Prober) Execute(ctx context.Context, m *storage.Monitor) *storage.HistoryRecord {
	p.sink.Info(fmt.Sprintf("开始检测: %s", m.Name), eventlog.WithMonitor(m.ID, m.Name))

	rec := p.run(ctx, m)

	if ctx.Err() != nil {
		// Shutdown raced the probe; an interrupted outcome is not history.
		return rec
	}
	if err := p.history.Append(rec); err != nil {
		p.sink.Error(fmt.Sprintf("检测结果写入失败: %s", m.Name),
			eventlog.WithMonitor(m.ID, m.Name),
			eventlog.WithMetadata(map[string]any{"error": err.Error()}))
	}

	if rec.Status == storage.StatusSuccess {
		p.sink.Info(fmt.Sprintf("检测成功: %s", m.Name),
			eventlog.WithMonitor(m.ID, m.Name),
			eventlog.WithMetadata(map[string]any{"response_time_ms": derefInt64(rec.ResponseTimeMs)}))
	} else {
		p.sink.Warn(fmt.Sprintf("检测失败: %s - %s", m.Name, derefString(rec.Error)),
			eventlog.WithMonitor(m.ID, m.Name))
	}
	return rec
}

// run performs the attempt loop and produces the terminal outcome.
func (p *Prober) run(ctx context.Context, m *storage.Monitor) *storage.HistoryRecord {
	target, err := url.Parse(m.URL)
	if err != nil || target.Host == "" {
		return newErrorRecord(m.ID, -1, 0, fmt.Sprintf("无效的URL: %s", m.URL))
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout())
	defer cancel()

	var lastErr error
	var elapsed int64
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := p.dispatch(probeCtx, m, target)
		elapsed = time.Since(start).Milliseconds()

		if err == nil {
			return p.classify(m, resp, elapsed)
		}
		lastErr = err

		// Cancellation-shaped errors are terminal: the hard deadline or a
		// shutdown aborted the request, and retrying cannot help.
		if isCancellation(err) || probeCtx.Err() != nil {
			break
		}
		if attempt >= p.cfg.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * p.cfg.RetryBaseDelay
		select {
		case <-probeCtx.Done():
			return newErrorRecord(m.ID, elapsed, 0, probeCtx.Err().Error())
		case <-time.After(backoff):
		}
	}
	return newErrorRecord(m.ID, elapsed, 0, lastErr.Error())
}

// dispatch builds and sends one request attempt.
func (p *Prober) dispatch(ctx context.Context, m *storage.Monitor, target *url.URL) (*http.Response, error) {
	method := m.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, m.URL, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	origin := target.Scheme + "://" + target.Host
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin)
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	if m.Cookie != "" {
		req.Header.Set("Cookie", m.Cookie)
	}

	return p.client.Do(req)
}

// classify turns a completed response into a terminal outcome.
//
// 2xx/3xx final statuses still have to pass the response check; 4xx/5xx
// map straight to an error outcome.
func (p *Prober) classify(m *storage.Monitor, resp *http.Response, elapsed int64) *storage.HistoryRecord {
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		reason := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return newErrorRecord(m.ID, elapsed, resp.StatusCode, reason)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newErrorRecord(m.ID, elapsed, resp.StatusCode, fmt.Sprintf("读取响应失败: %s", err))
	}
	if !checkResponseSuccess(m.URL, resp, body) {
		return newErrorRecord(m.ID, elapsed, resp.StatusCode, "响应不符合预期")
	}
	return newSuccessRecord(m.ID, elapsed, resp.StatusCode)
}

// checkResponseSuccess decides whether a 2xx/3xx response counts as a
// healthy target: the body must be non-empty, and cloudstudio.net targets
// must land on a cloudstudio.net or cloudstudio.club host after redirects
// (target-specific affinity rule carried from the original deployment).
func checkResponseSuccess(targetURL string, resp *http.Response, body []byte) bool {
	if len(body) == 0 {
		return false
	}

	target, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	if strings.Contains(target.Host, "cloudstudio.net") {
		finalHost := ""
		if resp.Request != nil && resp.Request.URL != nil {
			finalHost = resp.Request.URL.Host
		}
		if !strings.Contains(finalHost, "cloudstudio.net") && !strings.Contains(finalHost, "cloudstudio.club") {
			return false
		}
	}
	return true
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
