package ledger

import (
	"errors"
	"fmt"
)

// Kind enumerates every expected failure the ledger core can surface. The set
// is closed: callers switch on kind instead of matching error strings.
type Kind int

const (
	// KindNotFound covers a missing account, an account owned by another
	// user, and a closed destination. Deliberately indistinguishable so
	// existence of other users' accounts never leaks.
	KindNotFound Kind = iota + 1
	KindClosed
	KindInsufficientFunds
	KindInvalidAmount
	KindSameAccount
	KindNonZeroBalance
	// KindConflictRetryable signals a concurrent conflicting write that
	// survived the bounded internal retries; the whole operation may be
	// retried from validation.
	KindConflictRetryable
)

// String returns the stable wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindClosed:
		return "ACCOUNT_CLOSED"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindInvalidAmount:
		return "INVALID_AMOUNT"
	case KindSameAccount:
		return "SAME_ACCOUNT"
	case KindNonZeroBalance:
		return "NON_ZERO_BALANCE"
	case KindConflictRetryable:
		return "CONFLICT_RETRYABLE"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed, recoverable ledger failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// NewError builds a ledger error of the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain. ok is false for unexpected
// (non-ledger) errors, which callers must treat as internal failures.
func KindOf(err error) (Kind, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
