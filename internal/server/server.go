// Package server provides the main orchestration for the webwatch
// monitoring system.
//
// This package coordinates the startup and shutdown of all core
// components:
//   - Ordered key-value store initialization
//   - Monitoring engine startup (scheduler, maintenance job)
//   - HTTP API server management
//   - Graceful shutdown handling
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"webwatch/internal/api"
	"webwatch/internal/config"
	"webwatch/internal/core"
)

// shutdownGrace bounds how long in-flight HTTP requests may take to
// drain during shutdown.
const shutdownGrace = 10 * time.Second

// Server represents the main webwatch orchestrator. It ensures proper
// initialization order and handles graceful shutdown of all components.
type Server struct {
	cfg *config.Config
}

// New creates a new server instance with the provided configuration.
// The server is not started until Start() is called.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start initializes and starts all components in order: store and engine
// first, then the scheduler and maintenance loops, then the HTTP server.
//
// The method blocks until the context is cancelled (shutdown signal) or
// the HTTP server fails, and returns an error on any startup failure.
func (s *Server) Start(ctx context.Context) error {
	engine, err := core.NewEngine(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Stop()

	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	apiServer := api.NewServer(s.cfg.Server, engine)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	}
}
