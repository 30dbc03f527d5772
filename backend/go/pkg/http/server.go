package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/circuitbreaker"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/httpmiddleware"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/ratelimiter"
)

// Server wraps http.Server and applies the configured middleware around a handler,
// usually the gin engine of the coordinator.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer wraps handler with rate limiting and circuit breaking when they are enabled in cfg.
func NewServer(cfg *config.AppConfig, handler http.Handler, opts ...ServerOption) (*Server, error) {
	var middlewares []httpmiddleware.Middleware

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := ratelimiter.FromConfig(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		middlewares = append(middlewares, httpmiddleware.RateLimit(limiter))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.FromConfig(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		middlewares = append(middlewares, httpmiddleware.CircuitBreak(breaker))
	}

	srv := &Server{
		httpServer: &http.Server{
			Handler:           httpmiddleware.Chain(handler, middlewares...),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.Discard(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = cfg.Server.Address
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}

	srv.log.WithPayload(map[string]interface{}{
		"rate_limiter":    cfg.Middleware.RateLimiter.Enabled,
		"algorithm":       cfg.Middleware.RateLimiter.Algorithm,
		"circuit_breaker": cfg.Middleware.CircuitBreaker.Enabled,
	}).Info("http middleware configured")
	return srv, nil
}

// Handler returns the wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.WithPayload(map[string]interface{}{"address": lis.Addr().String()}).Info("http server listening")
	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
