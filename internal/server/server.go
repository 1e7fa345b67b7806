// Package server wires the HTTP surface of the catalog: the http.Server
// lifecycle, shared middleware, health and metrics endpoints, and RFC 7807
// problem responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/HerbHall/byggekatalog/docs" // registers the OpenAPI description
	"github.com/HerbHall/byggekatalog/internal/metrics"
	"github.com/HerbHall/byggekatalog/internal/version"
)

// RouteRegistrar is implemented by components that serve HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server is the byggekatalog HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	metrics    *metrics.Metrics
	mux        *http.ServeMux
}

// New creates a Server listening on addr with the given route registrars
// mounted. m may be nil, in which case /metrics is not served.
func New(addr string, logger *zap.Logger, m *metrics.Metrics, registrars ...RouteRegistrar) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:  logger,
		metrics: m,
		mux:     mux,
	}

	s.registerCoreRoutes()
	for _, r := range registrars {
		r.RegisterRoutes(mux)
	}
	s.httpServer.Handler = s.Handler()

	return s
}

// Handler returns the mux wrapped in the server middleware.
func (s *Server) Handler() http.Handler {
	return RequestID(AccessLog(s.logger, s.metrics)(s.mux))
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no such endpoint", r.URL.Path)
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200 {object} map[string]any
//	@Router		/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Byggekatalog-Version", version.Short())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"service": "byggekatalog",
		"version": version.Map(),
	})
}
