package api

import (
	authapi "webwatch/internal/api/auth"
	"webwatch/internal/api/monitors"
)

// setupRoutes configures the API routes.
//
// State-changing endpoints run the same-origin guard; everything under
// the protected group additionally requires a live session.
func (s *Server) setupRoutes() {
	baseHandler := NewHandler(s.engine)
	authHandler := authapi.NewHandler(s.engine.Auth(), s.engine.Config().Auth, s.engine.Sink())
	monitorHandler := monitors.NewHandler(
		s.engine.Config().Monitor,
		s.engine.Repos(),
		s.engine.Stats(),
		s.engine.Cache(),
		s.engine.Sink(),
	)

	// Admin page shell (delegated surface)
	s.router.GET("/", baseHandler.Dashboard)
	s.router.GET("/dashboard", baseHandler.Dashboard)

	api := s.router.Group("/api")

	// Authentication endpoints
	api.POST("/login", SameOrigin(), authHandler.Login)
	api.POST("/logout", SameOrigin(), authHandler.Logout)
	api.GET("/auth/check", authHandler.Check)

	// Everything else requires a live session
	protected := api.Group("", RequireAuth(s.engine.Auth()))

	protected.GET("/monitors", monitorHandler.List)
	protected.POST("/monitors", SameOrigin(), monitorHandler.Create)
	protected.PUT("/monitors/:id", SameOrigin(), monitorHandler.Update)
	protected.DELETE("/monitors/:id", SameOrigin(), monitorHandler.Delete)
	protected.GET("/monitors/status", monitorHandler.Status)
	protected.GET("/monitors/:id/history", monitorHandler.History)
	protected.GET("/monitors/:id/stats", monitorHandler.Stats)

	protected.GET("/stats", baseHandler.AllStats)
	protected.GET("/stats/overview", baseHandler.Overview)

	protected.GET("/system/info", baseHandler.SystemInfo)
	protected.GET("/system/health", baseHandler.SystemHealth)
	protected.GET("/system/cache", baseHandler.SystemCache)
	protected.POST("/system/cache/clear", SameOrigin(), baseHandler.SystemCacheClear)
	protected.GET("/system/scheduler", baseHandler.SystemScheduler)
	protected.GET("/system/logs", baseHandler.SystemLogs)
}
