// Package server exposes the library API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/drallgood/mediatrack/internal/api"
	"github.com/drallgood/mediatrack/internal/logger"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Health() error
}

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	handler *api.Handler
	health  HealthChecker
	logger  *logger.Logger
}

// New creates a new HTTP server listening on addr
func New(addr string, handler *api.Handler, health HealthChecker, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		server: &http.Server{
			Addr: addr,
		},
		handler: handler,
		health:  health,
		logger:  log,
	}

	s.server.Handler = log.HTTPMiddleware(s.routes())

	s.server.ReadTimeout = 10 * time.Second
	// imports run inside the request
	s.server.WriteTimeout = 5 * time.Minute
	s.server.IdleTimeout = 120 * time.Second

	return s
}

// Handler returns the root handler, middleware included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthCheck)

	mux.HandleFunc("GET /api/series", s.handler.GetSeries)
	mux.HandleFunc("GET /api/series/{name}", s.handler.GetSeriesDetail)
	mux.HandleFunc("GET /api/stats", s.handler.GetStats)
	mux.HandleFunc("GET /api/runs", s.handler.GetRuns)
	mux.HandleFunc("POST /api/books/{id}/listened", s.handler.MarkListened)
	mux.HandleFunc("POST /api/import", s.handler.StartImport)

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// handleHealthCheck handles health check requests
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.health != nil {
		if err := s.health.Health(); err != nil {
			s.logger.Warn("Health check failed", map[string]interface{}{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"status":"unavailable"}`)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
