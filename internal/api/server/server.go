// Package server provides HTTP server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remiblancher/provider-conformance/internal/api/router"
	"github.com/remiblancher/provider-conformance/internal/config"
	"github.com/remiblancher/provider-conformance/internal/crypto"
)

// Server represents the HTTP server.
type Server struct {
	cfg     config.ServerSettings
	version string
	logger  *slog.Logger
	hsm     *crypto.HSMConfig
	srv     *http.Server
}

// Option configures a Server.
type Option func(s *Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHSM enables the PKCS11 provider for requests.
func WithHSM(cfg *crypto.HSMConfig) Option {
	return func(s *Server) {
		s.hsm = cfg
	}
}

// New creates a new Server.
func New(cfg config.ServerSettings, version string, opts ...Option) *Server {
	s := &Server{cfg: cfg, version: version}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.srv = &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router.New(&router.Config{
			Version: version,
			Logger:  s.logger,
			HSM:     s.hsm,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on the configured address and blocks until SIGINT, SIGTERM
// or ctx cancellation, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is done or a signal arrives.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.srv.Serve(ln)
	}()
	s.logger.Info("server started", "address", ln.Addr().String(), "version", s.version)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", context.Cause(ctx))
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// PrintStartupInfo prints the listen address and endpoints.
func (s *Server) PrintStartupInfo(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "provcheck API Server")
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "  Version:  %s\n", s.version)
	fmt.Fprintf(w, "  Address:  http://%s\n", s.srv.Addr)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  GET  /health              - Health check")
	fmt.Fprintln(w, "  GET  /ready               - Readiness check")
	fmt.Fprintln(w, "  GET  /api/openapi.yaml    - OpenAPI specification")
	fmt.Fprintln(w, "  GET  /api/v1/providers    - Providers and services")
	fmt.Fprintln(w, "  POST /api/v1/resolve      - Resolve a transformation")
	fmt.Fprintln(w, "  POST /api/v1/runs         - Run conformance cases")
	fmt.Fprintln(w, "  GET  /api/v1/cases        - Case catalog")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use Ctrl+C to stop")
	fmt.Fprintln(w)
}
