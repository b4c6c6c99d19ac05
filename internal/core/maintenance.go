package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"webwatch/internal/config"
	"webwatch/internal/eventlog"
	"webwatch/internal/storage"
)

// loginAttemptRetention bounds how long rate-limit facts are kept; only
// the trailing lockout window is ever consulted.
const loginAttemptRetention = 24 * time.Hour

// Maintainer periodically garbage-collects expired sessions, old history,
// old system logs, and stale login attempts.
type Maintainer struct {
	cfg   config.Config
	repos *storage.Repositories
	sink  *eventlog.Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

// NewMaintainer creates a maintenance job over the repository set.
func NewMaintainer(cfg config.Config, repos *storage.Repositories, sink *eventlog.Sink) *Maintainer {
	return &Maintainer{cfg: cfg, repos: repos, sink: sink}
}

// Start runs one sweep immediately and then sweeps on the configured
// interval until Stop is called.
func (m *Maintainer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.active = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Sweep()

		ticker := time.NewTicker(m.cfg.Maintenance.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
	log.Info().Dur("interval", m.cfg.Maintenance.Interval).Msg("Maintenance job started")
}

// Stop halts the sweep loop.
func (m *Maintainer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.active = false
}

// Sweep runs the independent cleanup passes in parallel. A failure in one
// pass never aborts the others; the result is summarized in one INFO
// entry.
func (m *Maintainer) Sweep() {
	now := storage.Now()

	type sweepResult struct {
		name    string
		removed int
		err     error
	}
	results := make([]sweepResult, 4)

	var wg sync.WaitGroup
	runSweep := func(i int, name string, fn func() (int, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			removed, err := fn()
			results[i] = sweepResult{name: name, removed: removed, err: err}
		}()
	}

	runSweep(0, "sessions", func() (int, error) {
		return m.repos.Sessions.DeleteExpired(now)
	})
	runSweep(1, "history", func() (int, error) {
		return m.repos.History.DeleteOlderThan(now.Add(-m.cfg.Monitor.HistoryRetention()))
	})
	runSweep(2, "system_logs", func() (int, error) {
		return m.repos.SystemLogs.DeleteOlderThan(now.Add(-m.cfg.Maintenance.SystemLogRetention()))
	})
	runSweep(3, "login_attempts", func() (int, error) {
		return m.repos.Attempts.DeleteOlderThan(now.Add(-loginAttemptRetention))
	})
	wg.Wait()

	meta := map[string]any{}
	for _, r := range results {
		meta[r.name] = r.removed
		if r.err != nil {
			log.Error().Err(r.err).Str("sweep", r.name).Msg("Maintenance sweep failed")
		}
	}
	m.sink.Info(
		fmt.Sprintf("维护任务完成: 清理会话 %d, 历史 %d, 日志 %d, 登录记录 %d",
			results[0].removed, results[1].removed, results[2].removed, results[3].removed),
		eventlog.WithMetadata(meta),
	)
}
