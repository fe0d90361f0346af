package statement

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages the statement read model. Upsert keys on transaction ID
// so replayed events are harmless.
type Repository interface {
	Upsert(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Entry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates a missing statement entry
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "statement entry not found: " + e.TransactionID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}
