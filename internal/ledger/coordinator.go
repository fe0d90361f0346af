package ledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/domain/outbox"
	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Coordinator orchestrates the two-account operations (transfer, bill-pay)
// as one all-or-nothing unit spanning two Account Ledger mutations. Both
// sides' entries and balance updates commit in the same database transaction.
type Coordinator struct {
	db           TxRunner
	accounts     account.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	logger       *slog.Logger
}

// NewCoordinator creates the Transfer Coordinator.
func NewCoordinator(
	db TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		outbox:       outboxRepo,
		logger:       logger,
	}
}

// TransferReceipt reports a committed two-sided operation. Destination fields
// are nil for external bill payments, which have no destination side.
type TransferReceipt struct {
	Source        *transaction.Transaction
	Destination   *transaction.Transaction
	SourceBalance int64
}

// Transfer moves amount from one of the caller's open accounts to the open
// account addressed by destNumber, which may belong to any user. The pair of
// entries carries additive-inverse amounts and cross counterparty references.
func (c *Coordinator) Transfer(ctx context.Context, userID, sourceID uuid.UUID, destNumber string, amount int64, memo string) (*TransferReceipt, error) {
	if amount <= 0 {
		return nil, NewError(KindInvalidAmount, "amount must be a positive number of minor units")
	}

	var receipt *TransferReceipt
	err := runAtomic(ctx, c.db, func(tx pgx.Tx) error {
		accounts := c.accounts.WithTx(tx)

		dest, err := accounts.GetByNumber(ctx, destNumber)
		if err != nil {
			return err
		}
		if dest == nil || dest.IsClosed() {
			return NewError(KindNotFound, "destination account not found")
		}
		if dest.ID == sourceID {
			return NewError(KindSameAccount, "cannot transfer an account to itself")
		}

		src, dst, err := c.lockPair(ctx, accounts, sourceID, userID, dest.ID)
		if err != nil {
			return err
		}
		// Re-check on the locked row: the destination may have closed between
		// the lookup and the lock.
		if dst.IsClosed() {
			return NewError(KindNotFound, "destination account not found")
		}

		receipt, err = c.postPair(ctx, tx, src, dst, amount,
			transaction.TypeTransferOut, transaction.TypeTransferIn, memo, memo)
		return err
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	c.logger.Info("transfer committed",
		"source_account_id", sourceID.String(),
		"out_transaction_id", receipt.Source.ID.String(),
		"in_transaction_id", receipt.Destination.ID.String(),
		"amount", amount,
	)
	return receipt, nil
}

// BillPay pays amount from one of the caller's open accounts to payee. A
// payee matching an open account number gets transfer semantics
// (BILL_PAY_OUT/BILL_PAY_IN pair); anything else is an external payment
// recorded as a single one-sided BILL_PAY debit with no counterparty;
// money intentionally leaves the ledger's closed world.
func (c *Coordinator) BillPay(ctx context.Context, userID, sourceID uuid.UUID, payee string, amount int64, memo string) (*TransferReceipt, error) {
	if amount <= 0 {
		return nil, NewError(KindInvalidAmount, "amount must be a positive number of minor units")
	}
	if strings.TrimSpace(payee) == "" {
		return nil, NewError(KindNotFound, "payee is required")
	}

	var receipt *TransferReceipt
	err := runAtomic(ctx, c.db, func(tx pgx.Tx) error {
		accounts := c.accounts.WithTx(tx)

		dest, err := accounts.GetByNumber(ctx, payee)
		if err != nil {
			return err
		}
		internal := dest != nil && !dest.IsClosed()

		if internal {
			if dest.ID == sourceID {
				return NewError(KindSameAccount, "cannot pay a bill to the source account")
			}

			src, dst, err := c.lockPair(ctx, accounts, sourceID, userID, dest.ID)
			if err != nil {
				return err
			}
			if dst.IsClosed() {
				// Closed between lookup and lock: treat as external payee.
				receipt, err = c.postExternal(ctx, tx, accounts, src, payee, amount, memo)
				return err
			}

			outMemo := memo
			if outMemo == "" {
				outMemo = fmt.Sprintf("Bill pay to %s", payee)
			}
			inMemo := strings.TrimSpace(fmt.Sprintf("From account %s: %s", src.Number, memo))

			receipt, err = c.postPair(ctx, tx, src, dst, amount,
				transaction.TypeBillPayOut, transaction.TypeBillPayIn, outMemo, inMemo)
			return err
		}

		src, err := accounts.LockOwned(ctx, sourceID, userID)
		if err != nil {
			return err
		}
		receipt, err = c.postExternal(ctx, tx, accounts, src, payee, amount, memo)
		return err
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	c.logger.Info("bill payment committed",
		"source_account_id", sourceID.String(),
		"transaction_id", receipt.Source.ID.String(),
		"internal", receipt.Destination != nil,
		"amount", amount,
	)
	return receipt, nil
}

// lockPair row-locks the source (with ownership check) and destination in
// ascending account-id order so concurrent opposing transfers cannot
// deadlock.
func (c *Coordinator) lockPair(ctx context.Context, accounts account.Repository, sourceID, userID, destID uuid.UUID) (*account.Account, *account.Account, error) {
	var src, dst *account.Account
	var err error

	if lessUUID(sourceID, destID) {
		if src, err = accounts.LockOwned(ctx, sourceID, userID); err != nil {
			return nil, nil, err
		}
		if dst, err = accounts.LockForUpdate(ctx, destID); err != nil {
			return nil, nil, err
		}
	} else {
		if dst, err = accounts.LockForUpdate(ctx, destID); err != nil {
			return nil, nil, err
		}
		if src, err = accounts.LockOwned(ctx, sourceID, userID); err != nil {
			return nil, nil, err
		}
	}
	return src, dst, nil
}

// postPair writes both sides of a two-account operation: debit entry plus
// balance decrement on the source, credit entry plus increment on the
// destination, and one outbox event per side.
func (c *Coordinator) postPair(ctx context.Context, tx pgx.Tx, src, dst *account.Account, amount int64,
	outType, inType transaction.Type, outMemo, inMemo string) (*TransferReceipt, error) {

	accounts := c.accounts.WithTx(tx)
	transactions := c.transactions.WithTx(tx)

	if err := src.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := dst.Deposit(amount); err != nil {
		return nil, err
	}

	outTxn := transaction.New(src.ID, &dst.ID, outType, -amount, outMemo)
	inTxn := transaction.New(dst.ID, &src.ID, inType, amount, inMemo)

	if err := transactions.Create(ctx, outTxn); err != nil {
		return nil, err
	}
	if err := accounts.Update(ctx, src); err != nil {
		return nil, err
	}
	if err := transactions.Create(ctx, inTxn); err != nil {
		return nil, err
	}
	if err := accounts.Update(ctx, dst); err != nil {
		return nil, err
	}

	if err := c.enqueueEvent(ctx, tx, outTxn, src.Number, dst.Number, src.Balance); err != nil {
		return nil, err
	}
	if err := c.enqueueEvent(ctx, tx, inTxn, dst.Number, src.Number, dst.Balance); err != nil {
		return nil, err
	}

	return &TransferReceipt{Source: outTxn, Destination: inTxn, SourceBalance: src.Balance}, nil
}

// postExternal writes the one-sided external bill payment.
func (c *Coordinator) postExternal(ctx context.Context, tx pgx.Tx, accounts account.Repository, src *account.Account, payee string, amount int64, memo string) (*TransferReceipt, error) {
	if err := src.Withdraw(amount); err != nil {
		return nil, err
	}

	description := memo
	if description == "" {
		description = fmt.Sprintf("Bill pay to %s", payee)
	}

	txn := transaction.New(src.ID, nil, transaction.TypeBillPay, -amount, description)
	if err := c.transactions.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, err
	}
	if err := accounts.Update(ctx, src); err != nil {
		return nil, err
	}
	if err := c.enqueueEvent(ctx, tx, txn, src.Number, "", src.Balance); err != nil {
		return nil, err
	}

	return &TransferReceipt{Source: txn, SourceBalance: src.Balance}, nil
}

func (c *Coordinator) enqueueEvent(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction, accountNumber, counterpartyNumber string, balanceAfter int64) error {
	event := transaction.NewPostedEvent(txn, accountNumber, counterpartyNumber, balanceAfter, CorrelationIDFrom(ctx))
	msg, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return c.outbox.WithTx(tx).Create(ctx, msg)
}

// mapError shares the ledger error mapping with Service.
func (c *Coordinator) mapError(err error) error {
	return mapLedgerError(err)
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
