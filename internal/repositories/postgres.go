package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelnest/backend/internal/db"
	"github.com/reelnest/backend/internal/models"
)

const uniqueViolation = "23505"

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. Emails are stored lowercase.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, bio, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Username, strings.ToLower(user.Email), user.Password, user.Bio, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "select user by id", `WHERE id = $1`, id)
}

// FindByEmail fetches a user by their email address, ignoring case.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "select user by email", `WHERE email = $1`, strings.ToLower(email))
}

// FindByEmailOrUsername returns any user holding either the email or the username.
func (r *PostgresUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (models.User, error) {
	return r.findOne(ctx, "select user by email or username", `WHERE email = $1 OR username = $2 LIMIT 1`, strings.ToLower(email), username)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, where string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, bio, created_at, updated_at
        FROM users
        `+where, args...)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Bio, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// PostgresReelRepository provides PostgreSQL-backed persistence for reels.
type PostgresReelRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresReelRepository constructs a reel repository backed by PostgreSQL.
func NewPostgresReelRepository(pool db.Pool) *PostgresReelRepository {
	return &PostgresReelRepository{pool: pool, now: time.Now}
}

const reelColumns = `id, user_id, username, title, description, category, video_id, likes, dislikes, comments, created_at, updated_at`

// Create stores a new reel.
func (r *PostgresReelRepository) Create(ctx context.Context, reel models.Reel) error {
	comments, err := encodeComments(reel.Comments)
	if err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO reels (`+reelColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, reel.ID, reel.UserID, reel.Username, reel.Title, reel.Description, reel.Category, reel.VideoID,
		nonNil(reel.Likes), nonNil(reel.Dislikes), comments, reel.CreatedAt, reel.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert reel: %w", err)
	}

	return nil
}

// Find fetches a single reel by identifier.
func (r *PostgresReelRepository) Find(ctx context.Context, id string) (models.Reel, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Reel{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	reel, err := scanReel(conn.QueryRow(ctx, `SELECT `+reelColumns+` FROM reels WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reel{}, ErrNotFound
		}
		return models.Reel{}, fmt.Errorf("select reel: %w", err)
	}
	return reel, nil
}

// List returns reels newest first, narrowed by filter.
func (r *PostgresReelRepository) List(ctx context.Context, filter models.ReelFilter) ([]models.Reel, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultReelLimit
	}
	if limit > models.MaxReelLimit {
		limit = models.MaxReelLimit
	}
	args = append(args, limit)

	query := `SELECT ` + reelColumns + ` FROM reels`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reels: %w", err)
	}
	defer rows.Close()

	reels := make([]models.Reel, 0)
	for rows.Next() {
		reel, err := scanReel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reel: %w", err)
		}
		reels = append(reels, reel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reels: %w", err)
	}

	return reels, nil
}

// Mutate loads the reel with SELECT ... FOR UPDATE, applies fn and writes the
// mutable fields back inside the same transaction. Serialization failures are
// retried against a freshly loaded reel, so fn may run more than once.
func (r *PostgresReelRepository) Mutate(ctx context.Context, id string, fn func(*models.Reel) error) (models.Reel, error) {
	var err error
	for attempt := 0; attempt < mutateMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return models.Reel{}, err
			}
		}

		var reel models.Reel
		reel, err = r.mutateOnce(ctx, id, fn)
		if err == nil {
			return reel, nil
		}
		if !isRetryableTxError(err) {
			return models.Reel{}, err
		}
	}
	return models.Reel{}, fmt.Errorf("mutate reel %s: %w", id, err)
}

func (r *PostgresReelRepository) mutateOnce(ctx context.Context, id string, fn func(*models.Reel) error) (models.Reel, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Reel{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return models.Reel{}, fmt.Errorf("begin reel transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reel, err := scanReel(tx.QueryRow(ctx, `SELECT `+reelColumns+` FROM reels WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reel{}, ErrNotFound
		}
		return models.Reel{}, fmt.Errorf("lock reel: %w", err)
	}

	if err := fn(&reel); err != nil {
		return models.Reel{}, err
	}

	reel.UpdatedAt = r.now().UTC()
	comments, err := encodeComments(reel.Comments)
	if err != nil {
		return models.Reel{}, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE reels
        SET title = $2, description = $3, category = $4, likes = $5, dislikes = $6, comments = $7, updated_at = $8
        WHERE id = $1
    `, reel.ID, reel.Title, reel.Description, reel.Category, nonNil(reel.Likes), nonNil(reel.Dislikes), comments, reel.UpdatedAt)
	if err != nil {
		return models.Reel{}, fmt.Errorf("update reel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Reel{}, fmt.Errorf("commit reel transaction: %w", err)
	}

	reel.Likes = nonNil(reel.Likes)
	reel.Dislikes = nonNil(reel.Dislikes)
	return reel, nil
}

// Delete removes the reel when ownerID owns it. A missing reel and a reel owned
// by someone else both yield ErrNotFound.
func (r *PostgresReelRepository) Delete(ctx context.Context, id, ownerID string) (models.Reel, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Reel{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	reel, err := scanReel(conn.QueryRow(ctx, `
        DELETE FROM reels
        WHERE id = $1 AND user_id = $2
        RETURNING `+reelColumns, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reel{}, ErrNotFound
		}
		return models.Reel{}, fmt.Errorf("delete reel: %w", err)
	}
	return reel, nil
}

func scanReel(row pgx.Row) (models.Reel, error) {
	var (
		reel     models.Reel
		comments []byte
	)
	if err := row.Scan(&reel.ID, &reel.UserID, &reel.Username, &reel.Title, &reel.Description, &reel.Category,
		&reel.VideoID, &reel.Likes, &reel.Dislikes, &comments, &reel.CreatedAt, &reel.UpdatedAt); err != nil {
		return models.Reel{}, err
	}

	reel.Likes = nonNil(reel.Likes)
	reel.Dislikes = nonNil(reel.Dislikes)
	reel.Comments = []models.Comment{}
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &reel.Comments); err != nil {
			return models.Reel{}, fmt.Errorf("decode comments: %w", err)
		}
	}
	if reel.Comments == nil {
		reel.Comments = []models.Comment{}
	}
	return reel, nil
}

func encodeComments(comments []models.Comment) ([]byte, error) {
	if comments == nil {
		comments = []models.Comment{}
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("encode comments: %w", err)
	}
	return raw, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ReelRepository = (*PostgresReelRepository)(nil)
