package service

import (
	"context"
	"time"

	"tamv/internal/economy"
	"tamv/internal/logger"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetryPolicy bounds how often a conflicting or failing write is re-run.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetry is used by services built without an explicit policy.
var DefaultRetry = RetryPolicy{Attempts: 4, Delay: 25 * time.Millisecond}

// withRetry re-runs fn while it fails with a conflict or a transport error.
// fn must redo its reads: each attempt starts from fresh state.
func withRetry[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	if p.Attempts == 0 {
		p = DefaultRetry
	}
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(economy.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			RetriesTotal.WithLabelValues(op, string(retryReason(err))).Inc()
			logger.WithContext(ctx).Debug("retrying economy write",
				"op", op, "attempt", n+1, "max_attempts", p.Attempts, "error", err)
		}),
	)
}

func retryReason(err error) economy.Kind {
	if k := economy.KindOf(err); k != "" {
		return k
	}
	return "transport"
}

// inTx runs fn inside a database transaction and commits when fn succeeds.
func inTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return economy.Transport("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return economy.Transport("commit", err)
	}
	return nil
}

// now is truncated to the database's microsecond precision so values read
// back compare equal in conditional updates.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
