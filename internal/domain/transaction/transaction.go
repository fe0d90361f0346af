package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Type tags every ledger entry. The set is closed: the ledger core writes
// nothing else and readers may switch exhaustively.
type Type string

const (
	TypeDeposit     Type = "DEPOSIT"
	TypeWithdraw    Type = "WITHDRAW"
	TypeTransferOut Type = "TRANSFER_OUT"
	TypeTransferIn  Type = "TRANSFER_IN"
	TypeBillPayOut  Type = "BILL_PAY_OUT"
	TypeBillPayIn   Type = "BILL_PAY_IN"
	// TypeBillPay records an external bill payment: a one-sided debit with no
	// counterparty, because the payee lives outside the ledger's closed world.
	TypeBillPay Type = "BILL_PAY"
)

// Transaction is one append-only ledger entry. Amount is signed: credits are
// positive, debits negative, always in minor units. Seq is assigned by the
// database and breaks creation-time ties.
type Transaction struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty"`
	Type           Type       `json:"type"`
	Amount         int64      `json:"amount"` // minor units, signed
	Description    *string    `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Seq            int64      `json:"-"`
}

// New builds a ledger entry. description may be empty, in which case the
// column stays NULL.
func New(accountID uuid.UUID, counterpartyID *uuid.UUID, txType Type, amount int64, description string) *Transaction {
	t := &Transaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		CounterpartyID: counterpartyID,
		Type:           txType,
		Amount:         amount,
		CreatedAt:      time.Now(),
	}
	if description != "" {
		t.Description = &description
	}
	return t
}

// IsDebit reports whether the entry reduces the account balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}
