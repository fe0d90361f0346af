package statement

import (
	"time"

	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/google/uuid"
)

// Entry is one line of the statement read model kept in MongoDB. It is a
// denormalized copy of a committed ledger entry plus the balance it left
// behind; the PostgreSQL transaction log stays authoritative.
type Entry struct {
	TransactionID      uuid.UUID        `json:"transaction_id" bson:"transaction_id"`
	AccountID          uuid.UUID        `json:"account_id" bson:"account_id"`
	AccountNumber      string           `json:"account_number" bson:"account_number"`
	CounterpartyID     *uuid.UUID       `json:"counterparty_id,omitempty" bson:"counterparty_id,omitempty"`
	CounterpartyNumber string           `json:"counterparty_number,omitempty" bson:"counterparty_number,omitempty"`
	Type               transaction.Type `json:"type" bson:"type"`
	Amount             int64            `json:"amount" bson:"amount"` // minor units, signed
	BalanceAfter       int64            `json:"balance_after" bson:"balance_after"`
	Description        string           `json:"description,omitempty" bson:"description,omitempty"`
	PostedAt           time.Time        `json:"posted_at" bson:"posted_at"`
	ProjectedAt        time.Time        `json:"projected_at" bson:"projected_at"`
}

// FromEvent maps a posted-ledger event onto a statement entry.
func FromEvent(event *transaction.PostedEvent) *Entry {
	return &Entry{
		TransactionID:      event.TransactionID,
		AccountID:          event.AccountID,
		AccountNumber:      event.AccountNumber,
		CounterpartyID:     event.CounterpartyID,
		CounterpartyNumber: event.CounterpartyNumber,
		Type:               event.Type,
		Amount:             event.Amount,
		BalanceAfter:       event.BalanceAfter,
		Description:        event.Description,
		PostedAt:           event.PostedAt,
		ProjectedAt:        time.Now().UTC(),
	}
}
