// Package rest exposes the scoring engine over HTTP: score lookups for the
// login path and an admin surface for model lifecycle operations.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/config"
)

// Server wraps the HTTP listener and route setup.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the handler, middleware, health, and metrics endpoints.
func NewServer(cfg *config.ServerConfig, handler *Handler, registry *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	handler.Routes(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	root := Chain(mux,
		Recovery(logger),
		RequestID(),
		RequestLogging(logger),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
