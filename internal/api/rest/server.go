package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
)

// Server is the HTTP front of the risk engine.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	logger     *slog.Logger
	limiter    *clientLimiter
}

// NewServer assembles the router and middleware chain around the risk
// service. Liveness and metrics endpoints bypass rate limiting so probes
// and scrapes cannot be starved by traffic bursts.
func NewServer(cfg config.ServerConfig, service RiskService, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(service, logger, version)

	api := http.NewServeMux()
	handler.Routes(api)

	limiter := newClientLimiter(
		float64(cfg.RateLimit.RequestsPerSecond),
		cfg.RateLimit.BurstSize,
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", chain(api, rateLimitMiddleware(limiter)))
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("GET /readyz", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	root := chain(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		metricsMiddleware,
		tracingMiddleware(otel.Tracer("api.rest")),
		recoveryMiddleware(logger),
		timeoutMiddleware(cfg.WriteTimeout),
	)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start serves until the context is canceled, then drains connections
// within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server draining", "timeout", s.cfg.ShutdownTimeout)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases server-owned background work. Start calls it on exit;
// callers that only use Handler must call it themselves.
func (s *Server) Close() {
	s.limiter.close()
}

// Handler exposes the assembled root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
