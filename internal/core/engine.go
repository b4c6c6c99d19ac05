// Package core provides the monitoring engine: the composition root that
// owns the store, cache, log sink, probe executor, scheduler, and
// maintenance job, and coordinates their lifecycle.
package core

import (
	"time"

	"github.com/rs/zerolog/log"

	"webwatch/internal/auth"
	"webwatch/internal/cache"
	"webwatch/internal/checks"
	"webwatch/internal/config"
	"webwatch/internal/eventlog"
	"webwatch/internal/stats"
	"webwatch/internal/storage"
)

// Engine wires the long-lived components of the monitoring control plane.
// All singletons live here and are passed by reference; there are no
// ambient globals beyond the process logger.
type Engine struct {
	cfg       *config.Config
	store     *storage.Store
	repos     *storage.Repositories
	cache     *cache.Cache
	sink      *eventlog.Sink
	prober    *checks.Prober
	scheduler *Scheduler
	maint     *Maintainer
	stats     *stats.Engine
	auth      *auth.Manager
	startTime time.Time
}

// NewEngine opens the store and builds the component graph. The engine is
// inert until Start is called.
func NewEngine(cfg *config.Config) (*Engine, error) {
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	repos := storage.NewRepositories(store)
	c := cache.New(cfg.Cache.CleanupInterval)
	sink := eventlog.New(repos.SystemLogs, cfg.Maintenance.MaxSystemLogsScan)
	prober := checks.NewProber(cfg.Monitor, repos.History, sink)

	return &Engine{
		cfg:       cfg,
		store:     store,
		repos:     repos,
		cache:     c,
		sink:      sink,
		prober:    prober,
		scheduler: NewScheduler(cfg.Monitor, repos.Monitors, prober, c, sink),
		maint:     NewMaintainer(*cfg, repos, sink),
		stats:     stats.NewEngine(repos.History, c),
		auth:      auth.NewManager(cfg.Auth, repos.Sessions, repos.Attempts),
		startTime: time.Now(),
	}, nil
}

// Start launches the scheduler and the maintenance job.
func (e *Engine) Start() error {
	if err := e.scheduler.Start(); err != nil {
		return err
	}
	e.maint.Start()
	e.sink.Info("监控系统启动")
	return nil
}

// Stop halts the background loops and closes the store.
func (e *Engine) Stop() {
	e.scheduler.Stop()
	e.maint.Stop()
	if err := e.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
	log.Info().Msg("Engine stopped")
}

// Repos exposes the typed repositories.
func (e *Engine) Repos() *storage.Repositories { return e.repos }

// Cache exposes the shared TTL cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Sink exposes the system log sink.
func (e *Engine) Sink() *eventlog.Sink { return e.sink }

// Stats exposes the stats engine.
func (e *Engine) Stats() *stats.Engine { return e.stats }

// Auth exposes the session manager.
func (e *Engine) Auth() *auth.Manager { return e.auth }

// Scheduler exposes the probe scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Config exposes the loaded configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Uptime returns how long the engine has existed.
func (e *Engine) Uptime() time.Duration { return time.Since(e.startTime) }
