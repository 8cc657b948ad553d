package handlers

import (
	"context"

	"github.com/reelnest/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth and reel handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (models.User, error)
}

// ReelStore captures persistence for reels and their embedded engagement.
type ReelStore interface {
	Create(ctx context.Context, reel models.Reel) error
	Find(ctx context.Context, id string) (models.Reel, error)
	List(ctx context.Context, filter models.ReelFilter) ([]models.Reel, error)
	Mutate(ctx context.Context, id string, fn func(*models.Reel) error) (models.Reel, error)
	Delete(ctx context.Context, id, ownerID string) (models.Reel, error)
}

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	Generate(userID string) (string, error)
	Verify(token string) (string, error)
}

// PasswordHasher hashes new passwords and checks submitted ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// VideoReaper schedules background deletion of video blobs.
type VideoReaper interface {
	Enqueue(ctx context.Context, videoID string) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
