package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages the append-only transaction log. The ledger core is the
// sole writer; everything else reads.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByAccount returns entries newest first (created_at DESC, seq DESC)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// SumByAccount reconciles a balance independently of the stored counter
	SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing ledger entry
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil ID.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}
