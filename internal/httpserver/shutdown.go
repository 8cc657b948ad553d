package httpserver

import (
	"context"
	"time"

	"github.com/reelnest/backend/internal/config"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 10 * time.Second

func shutdownTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return DefaultShutdownTimeout
}

// Shutdown gracefully terminates the server, waiting at most the configured
// shutdown timeout beyond any deadline already on ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.inner.Shutdown(ctx)
}
