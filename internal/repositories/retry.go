package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	mutateMaxAttempts = 5
	mutateBaseBackoff = 20 * time.Millisecond
	mutateMaxBackoff  = 500 * time.Millisecond
)

var retryableTxCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryableTxCodes[pgErr.Code]
		return ok
	}
	return false
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := mutateBaseBackoff << (attempt - 1)
	if backoff > mutateMaxBackoff {
		backoff = mutateMaxBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
