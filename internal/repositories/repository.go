// Package repositories persists users and reels in PostgreSQL-compatible databases.
package repositories

import (
	"context"
	"errors"

	"github.com/reelnest/backend/internal/models"
)

var (
	// ErrNotFound is returned when no row matches, including rows hidden by an ownership check.
	ErrNotFound = errors.New("repositories: not found")
	// ErrConflict is returned when a write hits a unique index (email, username, id).
	ErrConflict = errors.New("repositories: unique constraint violated")
)

// UserRepository stores accounts. Emails are compared lowercase.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (models.User, error)
}

// ReelRepository exposes data access for reels and their embedded engagement.
type ReelRepository interface {
	Create(ctx context.Context, reel models.Reel) error
	Find(ctx context.Context, id string) (models.Reel, error)
	List(ctx context.Context, filter models.ReelFilter) ([]models.Reel, error)
	// Mutate loads the reel under a row lock, applies fn and persists the result
	// atomically. An error from fn aborts the write and is returned unchanged.
	Mutate(ctx context.Context, id string, fn func(*models.Reel) error) (models.Reel, error)
	// Delete removes the reel only when ownerID owns it.
	Delete(ctx context.Context, id, ownerID string) (models.Reel, error)
}
