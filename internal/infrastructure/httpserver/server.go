// Package httpserver exposes the bridge's unauthenticated local HTTP
// surface: Prometheus /metrics and a /healthz liveness probe. It follows
// the same lifecycle shape as the bridge's other infrastructure
// components — New, Start(ctx), Close().
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const gracefulShutdownTimeout = 10 * time.Second

// Logger is the narrow logging surface Server needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// HealthChecker reports whether a dependency the bridge needs is currently
// healthy. Both the CAN reader and the MQTT client implement this.
type HealthChecker interface {
	IsConnected() bool
}

// Server serves /healthz and /metrics on a single bind address.
type Server struct {
	addr   string
	logger Logger
	checks map[string]HealthChecker

	server *http.Server
	cancel context.CancelFunc
}

// New constructs a Server bound to addr. checks is a name-to-HealthChecker
// map; /healthz reports unhealthy if any entry reports disconnected.
func New(addr string, logger Logger, checks map[string]HealthChecker) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("httpserver: bind address is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("httpserver: logger is required")
	}
	return &Server{addr: addr, logger: logger, checks: checks}, nil
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start binds the listen address, returning any bind error, and then serves
// in a background goroutine. Call Close to shut down.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}
	_, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "address", s.addr)
	return nil
}

// Close gracefully shuts the server down, waiting up to
// gracefulShutdownTimeout for in-flight requests to finish.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server itself has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("http server health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("http server not started")
	}
	return nil
}
