package httpserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/reelnest/backend/internal/config"
)

// Server wraps the http.Server with the timeouts from configuration.
type Server struct {
	inner           *http.Server
	shutdownTimeout time.Duration
}

// New constructs a server listening on cfg.Port.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       2 * time.Minute,
		},
		shutdownTimeout: shutdownTimeout(cfg),
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic. It returns nil once Shutdown completes.
func (s *Server) Start() error {
	return s.serve(s.inner.ListenAndServe)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	return s.serve(func() error { return s.inner.Serve(l) })
}

func (s *Server) serve(run func() error) error {
	if err := run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
