package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelnest/backend/internal/config"
	"github.com/reelnest/backend/internal/storage"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Ping(context.Context) error { return nil }

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		Auth:        config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour, BcryptCost: 4},
		ObjectStore: config.ObjectStoreConfig{Driver: config.StorageDriverMemory},
		Upload:      config.UploadConfig{MaxBytes: 1024, RateLimit: 5, RateLimitWindow: time.Minute},
		RateLimit:   config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 5},
		Reaper:      config.ReaperConfig{Workers: 1, QueueSize: 4, Timeout: time.Second},
	}
}

func TestBuildDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, testConfig(), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	if deps.Users == nil || deps.Reels == nil {
		t.Fatal("expected repositories to be configured")
	}
	if deps.Tokens == nil || deps.Passwords == nil {
		t.Fatal("expected auth services to be configured")
	}
	if _, ok := deps.Blobs.(*storage.MemoryStorage); !ok {
		t.Fatalf("expected memory blob store, got %T", deps.Blobs)
	}
	if deps.Reaper == nil {
		t.Fatal("expected video reaper to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
	if deps.Upload.MaxBytes != 1024 {
		t.Fatalf("expected upload limit 1024, got %d", deps.Upload.MaxBytes)
	}
}

func TestBuildDependenciesRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore.Driver = "ftp"

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestBuildDependenciesRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default()); err == nil {
		t.Fatal("expected error for empty token secret")
	}
}

func TestBuildDependenciesS3(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore = config.ObjectStoreConfig{
		Driver:   config.StorageDriverS3,
		Bucket:   "test-bucket",
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, cfg, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = cleanup(context.Background()) }()

	if _, ok := deps.Blobs.(*storage.S3Storage); !ok {
		t.Fatalf("expected s3 blob store, got %T", deps.Blobs)
	}
}
