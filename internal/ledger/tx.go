package ledger

import (
	"context"
	"errors"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxRunner executes a function inside one database transaction, rolling back
// on error or panic. *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// maxAttempts bounds transparent retries of a whole atomic unit after a
// serialization failure, deadlock, or optimistic-lock conflict.
const maxAttempts = 3

// PostgreSQL SQLSTATE codes that warrant retrying the unit from scratch.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return errors.Is(err, account.ErrConcurrentModification{})
}

// runAtomic executes fn inside a transaction, retrying the whole unit on
// retryable conflicts. Once the attempts are exhausted the caller sees
// KindConflictRetryable and may retry from validation.
func runAtomic(ctx context.Context, db TxRunner, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = db.ExecuteTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return NewError(KindConflictRetryable, "operation conflicted with concurrent writes after %d attempts", maxAttempts)
}
