// Package core provides the scheduling engine for the webwatch monitoring
// system.
package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"webwatch/internal/cache"
	"webwatch/internal/checks"
	"webwatch/internal/config"
	"webwatch/internal/eventlog"
	"webwatch/internal/storage"
)

// tickInterval is the scheduler's nominal period. Probe cadence is a
// multiple of it: a monitor with interval N minutes runs every ~N ticks.
const tickInterval = time.Minute

// interBatchPause spaces consecutive probe batches to avoid traffic bursts.
const interBatchPause = time.Second

// SchedulerStatus is the runtime state exposed through the API.
type SchedulerStatus struct {
	IsRunning         bool       `json:"isRunning"`
	ExecutionCount    int64      `json:"executionCount"`
	LastExecutionTime *time.Time `json:"lastExecutionTime,omitempty"`
}

// Scheduler drives the periodic probe loop: every tick it selects due
// monitors, fans them out in bounded batches, and writes outcomes back to
// their configs.
type Scheduler struct {
	cfg      config.MonitorConfig
	monitors *storage.MonitorRepo
	prober   *checks.Prober
	cache    *cache.Cache
	sink     *eventlog.Sink

	mu             sync.Mutex
	running        bool
	tickActive     bool
	executionCount int64
	lastExecution  *time.Time
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewScheduler creates a scheduler; it does not start ticking until Start
// is called.
func NewScheduler(cfg config.MonitorConfig, monitors *storage.MonitorRepo, prober *checks.Prober, c *cache.Cache, sink *eventlog.Sink) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		monitors: monitors,
		prober:   prober,
		cache:    c,
		sink:     sink,
	}
}

// Start launches the tick loop. The first tick runs immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(ctx)

	log.Info().Int("max_concurrent", s.cfg.MaxConcurrent).Msg("Scheduler started")
	return nil
}

// Stop cancels in-flight probes and waits for the loop to exit.
// Interrupted probes discard their results.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the tick loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the current runtime state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := SchedulerStatus{
		IsRunning:      s.running,
		ExecutionCount: s.executionCount,
	}
	if s.lastExecution != nil {
		t := *s.lastExecution
		status.LastExecutionTime = &t
	}
	return status
}

// run executes ticks until the context is cancelled.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass. A tick that would overlap a still-running
// predecessor is skipped, and a panic inside a tick is contained so the
// next tick still runs.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.tickActive {
		s.mu.Unlock()
		log.Warn().Msg("Previous tick still running, skipping")
		return
	}
	s.tickActive = true
	now := storage.Now()
	s.executionCount++ // counts every tick, productive or not
	s.lastExecution = &now
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Scheduler tick panicked")
			s.sink.Error(fmt.Sprintf("调度器异常: %v", r))
		}
		s.mu.Lock()
		s.tickActive = false
		s.mu.Unlock()
	}()

	due := s.selectDue(now)
	if len(due) == 0 {
		return
	}

	log.Info().Int("due", len(due)).Msg("Executing due monitors")
	for start := 0; start < len(due); start += s.cfg.MaxConcurrent {
		end := start + s.cfg.MaxConcurrent
		if end > len(due) {
			end = len(due)
		}
		s.executeBatch(ctx, due[start:end])

		if end < len(due) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interBatchPause):
			}
		}
	}
}

// selectDue loads the monitor list and returns the enabled monitors whose
// interval has elapsed. Skipped monitors get their expected next run
// logged at debug level.
func (s *Scheduler) selectDue(now time.Time) []*storage.Monitor {
	monitors, err := s.listMonitors()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load monitors for tick")
		s.sink.Error("读取监控配置失败", eventlog.WithMetadata(map[string]any{"error": err.Error()}))
		return nil
	}

	var due []*storage.Monitor
	for _, m := range monitors {
		if !m.Enabled {
			continue
		}
		if isDue(m, now) {
			due = append(due, m)
			continue
		}
		next := m.LastCheckAt.Add(time.Duration(m.IntervalMinutes) * time.Minute)
		log.Debug().Str("monitor", m.Name).Time("next_run", next).Msg("Monitor not due yet")
	}
	return due
}

// isDue reports whether the monitor should be probed at now: never probed,
// or at least its interval has passed since the last probe.
func isDue(m *storage.Monitor, now time.Time) bool {
	if m.LastCheckAt == nil {
		return true
	}
	return now.Sub(*m.LastCheckAt) >= time.Duration(m.IntervalMinutes)*time.Minute
}

// listMonitors reads the monitor list through the cache.
func (s *Scheduler) listMonitors() ([]*storage.Monitor, error) {
	if cached, ok := s.cache.Get(cache.KeyAllMonitors); ok {
		if monitors, ok := cached.([]*storage.Monitor); ok {
			return monitors, nil
		}
	}
	monitors, err := s.monitors.List()
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.KeyAllMonitors, monitors, cache.TTLMonitors)
	return monitors, nil
}

// executeBatch probes one batch in parallel, then writes every outcome
// back to its config. A failed probe never aborts the batch: the prober
// converts all failures into error outcomes.
func (s *Scheduler) executeBatch(ctx context.Context, batch []*storage.Monitor) {
	results := make([]*storage.HistoryRecord, len(batch))

	var wg sync.WaitGroup
	for i, m := range batch {
		wg.Add(1)
		go func(i int, m *storage.Monitor) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("monitor", m.Name).Msg("Probe panicked")
				}
			}()
			results[i] = s.prober.Execute(ctx, m)
		}(i, m)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Shutdown mid-batch: interrupted outcomes are discarded.
		return
	}

	for i, rec := range results {
		if rec == nil {
			continue
		}
		s.writeBack(batch[i].ID, rec)
	}
	s.cache.ClearPrefix(cache.KeyAllMonitors)
}

// writeBack overwrites the probe-owned fields of a config from a terminal
// outcome. The monitor is reloaded first so concurrent API edits to other
// fields are not clobbered.
func (s *Scheduler) writeBack(monitorID string, rec *storage.HistoryRecord) {
	m, err := s.monitors.Get(monitorID)
	if err != nil || m == nil {
		// Deleted mid-tick; the orphan history record ages out via retention.
		return
	}

	ts := rec.Timestamp
	m.LastCheckAt = &ts
	m.Status = rec.Status
	m.LastError = rec.Error
	m.UpdatedAt = storage.Now()

	if err := s.monitors.Save(m); err != nil {
		log.Error().Err(err).Str("monitor", m.Name).Msg("Failed to write back probe outcome")
	}
}
