package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/config"
	"github.com/reelnest/backend/internal/db"
	"github.com/reelnest/backend/internal/handlers"
	"github.com/reelnest/backend/internal/middleware"
	"github.com/reelnest/backend/internal/repositories"
	"github.com/reelnest/backend/internal/storage"
	"github.com/reelnest/backend/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup drains background workers and must be called on shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	blobs, err := newBlobStore(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure tokens: %w", err)
	}

	reaper := videos.NewReaper(blobs, videos.ReaperConfig{
		QueueSize: cfg.Reaper.QueueSize,
		Workers:   cfg.Reaper.Workers,
		Timeout:   cfg.Reaper.Timeout,
	}, logger)

	deps := handlers.Dependencies{
		Users:       repositories.NewPostgresUserRepository(pool),
		Reels:       repositories.NewPostgresReelRepository(pool),
		Blobs:       blobs,
		Tokens:      tokens,
		Passwords:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Reaper:      reaper,
		DB:          pool,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.RateLimit),
		Upload: handlers.UploadLimits{
			MaxBytes: cfg.Upload.MaxBytes,
			Requests: cfg.Upload.RateLimit,
			Window:   cfg.Upload.RateLimitWindow,
		},
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}

	return deps, reaper.Shutdown, nil
}

func newBlobStore(ctx context.Context, cfg config.ObjectStoreConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		return storage.NewMemoryStorage(), nil
	case config.StorageDriverS3, "":
		store, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configure object storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
