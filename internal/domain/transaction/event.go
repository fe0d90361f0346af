package transaction

import (
	"time"

	"github.com/google/uuid"
)

// PostedEvent is the message emitted for every committed ledger entry. It is
// written to the outbox in the same database transaction as the entry itself
// and later published to Kafka for read-model projection.
type PostedEvent struct {
	TransactionID      uuid.UUID  `json:"transaction_id"`
	AccountID          uuid.UUID  `json:"account_id"`
	AccountNumber      string     `json:"account_number"`
	CounterpartyID     *uuid.UUID `json:"counterparty_id,omitempty"`
	CounterpartyNumber string     `json:"counterparty_number,omitempty"`
	Type               Type       `json:"type"`
	Amount             int64      `json:"amount"` // minor units, signed
	BalanceAfter       int64      `json:"balance_after"`
	Description        string     `json:"description,omitempty"`
	PostedAt           time.Time  `json:"posted_at"`
	CorrelationID      string     `json:"correlation_id,omitempty"`
}

// NewPostedEvent snapshots a committed entry together with the balance it
// left behind on its account.
func NewPostedEvent(txn *Transaction, accountNumber string, counterpartyNumber string, balanceAfter int64, correlationID string) *PostedEvent {
	e := &PostedEvent{
		TransactionID:      txn.ID,
		AccountID:          txn.AccountID,
		AccountNumber:      accountNumber,
		CounterpartyID:     txn.CounterpartyID,
		CounterpartyNumber: counterpartyNumber,
		Type:               txn.Type,
		Amount:             txn.Amount,
		BalanceAfter:       balanceAfter,
		PostedAt:           txn.CreatedAt,
		CorrelationID:      correlationID,
	}
	if txn.Description != nil {
		e.Description = *txn.Description
	}
	return e
}
