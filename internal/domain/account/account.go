package account

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountClosed     = errors.New("account is closed")
	ErrNonZeroBalance    = errors.New("account balance must be zero to close")
	ErrEmptyAccountType  = errors.New("account type cannot be empty")
)

// MaxNicknameLength caps user-supplied nicknames, counted in runes to match
// the VARCHAR(40) column.
const MaxNicknameLength = 40

// Account represents a customer bank account. Balance is stored in integer
// minor units (cents); floating point never touches money.
type Account struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Number    string     `json:"number"` // opaque routing key, unique, not sequential
	Type      string     `json:"type"`
	Nickname  *string    `json:"nickname,omitempty"`
	Balance   int64      `json:"balance"` // minor units
	Version   int        `json:"version"` // for optimistic locking
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewAccount creates an open account with zero balance for the given user.
// The account number is assigned by the caller (see ledger.Service), which
// owns collision handling.
func NewAccount(userID uuid.UUID, number string, accountType string) (*Account, error) {
	if accountType == "" {
		return nil, ErrEmptyAccountType
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		Number:    number,
		Type:      accountType,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsClosed reports whether the account has been closed.
func (a *Account) IsClosed() bool {
	return a.ClosedAt != nil
}

// Deposit adds the amount to the balance. The account must be open.
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.IsClosed() {
		return ErrAccountClosed
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Withdraw subtracts the amount from the balance. The funds check runs
// against the in-memory state, which callers must have loaded under a row
// lock for it to be authoritative.
func (a *Account) Withdraw(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.IsClosed() {
		return ErrAccountClosed
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// SetNickname normalizes and applies a nickname: trimmed, capped at
// MaxNicknameLength runes, empty string clears it. Allowed on closed accounts
// since it has no ledger effect.
func (a *Account) SetNickname(nickname string) {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" {
		a.Nickname = nil
	} else {
		// Truncate on rune boundaries: cutting bytes could split a
		// multi-byte rune and store invalid UTF-8.
		if utf8.RuneCountInString(trimmed) > MaxNicknameLength {
			trimmed = string([]rune(trimmed)[:MaxNicknameLength])
		}
		a.Nickname = &trimmed
	}
	a.UpdatedAt = time.Now()
	a.Version++
}

// Close stamps the closure timestamp. Closing requires a zero balance and is
// irreversible; closing an already-closed account is an error.
func (a *Account) Close() error {
	if a.IsClosed() {
		return ErrAccountClosed
	}
	if a.Balance != 0 {
		return ErrNonZeroBalance
	}

	now := time.Now()
	a.ClosedAt = &now
	a.UpdatedAt = now
	a.Version++
	return nil
}
