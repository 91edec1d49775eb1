package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/astro"
	"github.com/astrofront/astrofront/internal/config"
	apperrors "github.com/astrofront/astrofront/internal/errors"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/pipeline"
	"github.com/astrofront/astrofront/internal/server/handlers"
	servermw "github.com/astrofront/astrofront/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    *config.Config
}

// New creates the HTTP server with the full processing chain wired in.
//
// Middleware order, outermost first: RealIP and RequestID establish caller
// identity, Timing measures everything below it, Recovery catches handler
// panics, SizeLimit and RateLimit reject work before it costs anything,
// Compress sits outside Cache so cached bodies stay uncompressed and each
// client gets encoding negotiated on the way out.
func New(cfg *config.Config, pipe *pipeline.Pipeline, engine astro.Engine, version string) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.Timing(cfg.Request.SlowThreshold))
	r.Use(servermw.Recovery)
	r.Use(servermw.SizeLimit(cfg.Request.MaxBodyBytes))
	r.Use(servermw.RateLimit(pipe.Limiter, config.PathSet(cfg.Limits.ExcludedPaths)))
	r.Use(servermw.Compress(pipe.Compressor))
	r.Use(servermw.Cache(pipe.Cache, cfg.Cache.Methods, config.PathSet(cfg.Cache.ExcludedPaths)))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
	}

	// Handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes(pipe, engine, version)

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.cfg.Server.Host),
		zap.Int("port", s.cfg.Server.Port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port
func (s *Server) Port() int {
	return s.cfg.Server.Port
}
