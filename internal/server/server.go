// Package server exposes the calculation service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/agbru/zkfib/internal/config"
	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/service"
)

// Server is the HTTP front end of a service.Service.
type Server struct {
	service        service.Service
	cfg            config.AppConfig
	httpServer     *http.Server
	logger         logging.Logger
	rateLimiter    *RateLimiter
	securityConfig SecurityConfig
	metrics        *Metrics
	timeouts       Timeouts
}

// NewServer creates a server for svc listening on cfg.Port.
func NewServer(svc service.Service, cfg config.AppConfig, opts ...Option) *Server {
	s := &Server{
		service:        svc,
		cfg:            cfg,
		logger:         logging.NewLogger(os.Stdout, "server"),
		securityConfig: DefaultSecurityConfig(),
		metrics:        NewMetrics(),
		timeouts:       DefaultServerTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rateLimiter == nil {
		rlConfig := DefaultRateLimiterConfig()
		proxies, err := cfg.TrustedProxyPrefixes()
		if err != nil {
			s.logger.Warn("ignoring trusted proxies", logging.Err(err))
		}
		rlConfig.TrustedProxies = proxies
		s.rateLimiter = NewRateLimiter(rlConfig)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/calculate", s.wrapWithMiddleware(s.handleCalculate))
	mux.HandleFunc("/compare", s.wrapWithMiddleware(s.handleCompare))
	mux.HandleFunc("/sequence", s.wrapWithMiddleware(s.handleSequence))
	mux.HandleFunc("/verify", s.wrapWithMiddleware(s.handleVerify))
	mux.HandleFunc("/health", s.wrapWithMiddleware(s.handleHealth))
	mux.HandleFunc("/algorithms", s.wrapWithMiddleware(s.handleAlgorithms))
	mux.HandleFunc("/metrics", s.wrapWithMiddleware(s.handleMetrics))

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  s.timeouts.ReadTimeout,
		WriteTimeout: s.timeouts.WriteTimeout,
		IdleTimeout:  s.timeouts.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Middleware order, outermost first: request id, security headers, rate
// limit, access log, metrics.
func (s *Server) wrapWithMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	wrapped := s.metricsMiddleware(handler)
	wrapped = s.loggingMiddleware(wrapped)
	wrapped = RateLimitMiddleware(s.rateLimiter, wrapped)
	wrapped = SecurityMiddleware(s.securityConfig, wrapped)
	return requestIDMiddleware(wrapped)
}

// Start serves until ctx is done, then shuts down gracefully within
// Timeouts.ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return apperrors.NewServerError("server failed to start", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			logging.String("addr", ln.Addr().String()),
			logging.Uint32("max_n", s.cfg.MaxN),
			logging.Uint32("max_recursive_n", s.cfg.MaxRecursiveN),
			logging.Int("trusted_proxies", len(s.cfg.TrustedProxies)))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, initiating graceful shutdown")
	case err := <-errCh:
		return apperrors.NewServerError("server failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return apperrors.NewServerError("failed to gracefully shutdown server", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
