package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mockstack/mockstack/pkg/logging"
	"github.com/mockstack/mockstack/pkg/metrics"
)

// Server hosts the mock API handler, and optionally a Prometheus metrics
// endpoint, on one HTTP listener.
type Server struct {
	addr       string
	handler    *Handler
	httpServer *http.Server
	log        *slog.Logger
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server and handler.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
			s.handler.SetLogger(log)
		}
	}
}

// WithMetrics wires Prometheus instrumentation and serves it at /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.handler.SetMetrics(m)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.Handle("/", s.handler)
		s.httpServer.Handler = mux
	}
}

// NewServer creates a Server for the given listen address and handler.
func NewServer(addr string, handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		addr:    addr,
		handler: handler,
		log:     logging.Nop(),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the HTTP listener until Shutdown is called. It blocks.
func (s *Server) Start() error {
	s.log.Info("mock API server listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, honoring the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down mock API server")
	return s.httpServer.Shutdown(ctx)
}
