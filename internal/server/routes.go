package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/astro"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/pipeline"
	"github.com/astrofront/astrofront/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(pipe *pipeline.Pipeline, engine astro.Engine, version string) {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Operational surfaces
	status := handlers.NewStatus(pipe, version)
	s.router.Get("/status", status.Handler)
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Chart API
	compute := handlers.NewCompute(engine, pipe.Gate, pipe.Memo)
	s.router.Get("/api/v4/now", compute.NowHandler)
	s.router.Get("/api/v4/chart", compute.ChartHandler)
	s.router.Post("/api/v4/birth-chart", compute.BirthChartHandler)

	// Admin signal endpoint (optional, requires ASTROFRONT_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv("ASTROFRONT_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no ASTROFRONT_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
