package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetOwned retrieves an account only if it belongs to the given user.
	// A missing account and someone else's account are indistinguishable.
	GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Account, error)

	// GetByNumber resolves an account by its external routing number.
	// Returns nil, nil when no account carries the number.
	GetByNumber(ctx context.Context, number string) (*Account, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)

	// Update persists the full row guarded by the optimistic version column
	Update(ctx context.Context, account *Account) error

	// LockOwned acquires a pessimistic row lock (SELECT ... FOR UPDATE) on an
	// account owned by the user, for the duration of the enclosing transaction
	LockOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Account, error)

	// LockForUpdate acquires a pessimistic row lock without an ownership check
	// (used for the destination side of transfers)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// Is matches any ErrConcurrentModification when the target carries a nil ID.
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrAccountNotFound indicates a missing (or not owned) account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries a nil ID.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrDuplicateNumber indicates an account-number uniqueness violation
type ErrDuplicateNumber struct {
	Number string
}

func (e ErrDuplicateNumber) Error() string {
	return "account number already in use: " + e.Number
}
