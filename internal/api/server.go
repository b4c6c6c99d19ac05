// Package api provides HTTP API functionality for the webwatch monitoring
// system. The package implements a RESTful API using the Gin framework.
//
// Example usage:
//
//	server := api.NewServer(cfg.Server, engine)
//	err := server.Start()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"webwatch/internal/config"
	"webwatch/internal/core"
)

// Server represents the HTTP API server.
type Server struct {
	config config.ServerConfig
	engine *core.Engine
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP API server instance.
//
// Parameters:
//   - cfg: Server configuration containing port and timeout settings
//   - engine: Core monitoring engine instance
//
// Returns:
//   - *Server: Initialized server instance
func NewServer(cfg config.ServerConfig, engine *core.Engine) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: cfg,
		engine: engine,
		router: gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and begins listening for requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr()).Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// setupMiddleware configures middleware for the Gin router.
func (s *Server) setupMiddleware() {
	// Panic recovery first so every later failure becomes a 5001 envelope
	s.router.Use(PanicRecovery())

	// Security headers
	s.router.Use(SecurityHeaders())

	// Permissive CORS preflight
	s.router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	// Request logging
	s.router.Use(LoggerMiddleware())
}
