// Package ledger implements the ledger core: account lifecycle, the
// single-account balance primitives, and (in Coordinator) the two-account
// transfer operations. Every mutation runs inside one database transaction;
// balance updates and transaction-log appends commit together or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/domain/outbox"
	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service is the Account Ledger: it owns balance state and is, together with
// Coordinator, the sole writer of the transaction log.
type Service struct {
	db           TxRunner
	accounts     account.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	logger       *slog.Logger
}

// NewService creates the Account Ledger service.
func NewService(
	db TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		outbox:       outboxRepo,
		logger:       logger,
	}
}

// Receipt reports the outcome of a committed single-account mutation.
type Receipt struct {
	Transaction *transaction.Transaction
	Balance     int64 // account balance after the mutation, minor units
}

// openNumberAttempts bounds retries when a freshly generated account number
// collides with an existing one.
const openNumberAttempts = 5

// OpenAccount creates an open, zero-balance account for the user. The account
// number is random; on the (rare) unique violation a new number is drawn.
func (s *Service) OpenAccount(ctx context.Context, userID uuid.UUID, accountType string) (*account.Account, error) {
	var lastErr error
	for attempt := 0; attempt < openNumberAttempts; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return nil, err
		}

		acc, err := account.NewAccount(userID, number, accountType)
		if err != nil {
			return nil, err
		}

		if err := s.accounts.Create(ctx, acc); err != nil {
			var dup account.ErrDuplicateNumber
			if errors.As(err, &dup) {
				s.logger.Warn("account number collision, regenerating", "number", number)
				lastErr = err
				continue
			}
			return nil, err
		}

		s.logger.Info("account opened", "account_id", acc.ID.String(), "user_id", userID.String(), "type", accountType)
		return acc, nil
	}
	return nil, fmt.Errorf("failed to allocate a unique account number: %w", lastErr)
}

// GetAccount fetches one of the caller's accounts.
func (s *Service) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.GetOwned(ctx, accountID, userID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return acc, nil
}

// ListAccounts returns all accounts of the caller, open and closed.
func (s *Service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}

// Deposit credits amount to an open account owned by the user, appending a
// DEPOSIT entry and updating the balance as one atomic unit.
func (s *Service) Deposit(ctx context.Context, userID, accountID uuid.UUID, amount int64, description string) (*Receipt, error) {
	return s.post(ctx, userID, accountID, amount, transaction.TypeDeposit, description)
}

// Withdraw debits amount from an open account owned by the user. The funds
// check runs against the row-locked balance, never a stale read.
func (s *Service) Withdraw(ctx context.Context, userID, accountID uuid.UUID, amount int64, description string) (*Receipt, error) {
	return s.post(ctx, userID, accountID, amount, transaction.TypeWithdraw, description)
}

// post executes a single-account mutation: lock, validate, append entry,
// update balance, enqueue the posted event, all in one transaction.
func (s *Service) post(ctx context.Context, userID, accountID uuid.UUID, amount int64, txType transaction.Type, description string) (*Receipt, error) {
	if amount <= 0 {
		return nil, NewError(KindInvalidAmount, "amount must be a positive number of minor units")
	}

	var receipt *Receipt
	err := runAtomic(ctx, s.db, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.LockOwned(ctx, accountID, userID)
		if err != nil {
			return err
		}

		var txn *transaction.Transaction
		switch txType {
		case transaction.TypeDeposit:
			if err := acc.Deposit(amount); err != nil {
				return err
			}
			txn = transaction.New(acc.ID, nil, transaction.TypeDeposit, amount, description)
		case transaction.TypeWithdraw:
			if err := acc.Withdraw(amount); err != nil {
				return err
			}
			txn = transaction.New(acc.ID, nil, transaction.TypeWithdraw, -amount, description)
		default:
			return fmt.Errorf("unsupported single-account transaction type %q", txType)
		}

		if err := s.transactions.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		if err := accounts.Update(ctx, acc); err != nil {
			return err
		}
		if err := s.enqueueEvent(ctx, tx, txn, acc.Number, "", acc.Balance); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: txn, Balance: acc.Balance}
		return nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.logger.Info("ledger entry posted",
		"transaction_id", receipt.Transaction.ID.String(),
		"account_id", accountID.String(),
		"type", string(txType),
		"amount", receipt.Transaction.Amount,
	)
	return receipt, nil
}

// Rename updates the nickname. Metadata only: no ledger entry, no balance
// effect, permitted on closed accounts.
func (s *Service) Rename(ctx context.Context, userID, accountID uuid.UUID, nickname string) (*account.Account, error) {
	var renamed *account.Account
	err := runAtomic(ctx, s.db, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.LockOwned(ctx, accountID, userID)
		if err != nil {
			return err
		}

		acc.SetNickname(nickname)
		if err := accounts.Update(ctx, acc); err != nil {
			return err
		}
		renamed = acc
		return nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return renamed, nil
}

// CloseAccount closes the account, which must have a zero balance. Closure is
// irreversible; closing again fails with KindClosed.
func (s *Service) CloseAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	var closed *account.Account
	err := runAtomic(ctx, s.db, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.LockOwned(ctx, accountID, userID)
		if err != nil {
			return err
		}

		if err := acc.Close(); err != nil {
			return err
		}
		if err := accounts.Update(ctx, acc); err != nil {
			return err
		}
		closed = acc
		return nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.logger.Info("account closed", "account_id", accountID.String(), "user_id", userID.String())
	return closed, nil
}

// Transactions lists the account's ledger entries newest first.
func (s *Service) Transactions(ctx context.Context, userID, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, int64, error) {
	if _, err := s.accounts.GetOwned(ctx, accountID, userID); err != nil {
		return nil, 0, s.mapError(err)
	}

	entries, err := s.transactions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Reconciliation compares the stored balance with the transaction-log sum.
type Reconciliation struct {
	AccountID      uuid.UUID `json:"account_id"`
	Balance        int64     `json:"balance"`
	TransactionSum int64     `json:"transaction_sum"`
	Consistent     bool      `json:"consistent"`
}

// Reconcile recomputes the balance from the transaction log. The two values
// must always agree; a mismatch means the balance invariant was violated.
func (s *Service) Reconcile(ctx context.Context, userID, accountID uuid.UUID) (*Reconciliation, error) {
	acc, err := s.accounts.GetOwned(ctx, accountID, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	sum, err := s.transactions.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		AccountID:      acc.ID,
		Balance:        acc.Balance,
		TransactionSum: sum,
		Consistent:     acc.Balance == sum,
	}
	if !rec.Consistent {
		s.logger.Error("balance diverged from transaction log",
			"account_id", accountID.String(),
			"balance", acc.Balance,
			"transaction_sum", sum,
		)
	}
	return rec, nil
}

// enqueueEvent writes the posted event to the outbox inside the same
// transaction as the ledger entry it describes.
func (s *Service) enqueueEvent(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction, accountNumber, counterpartyNumber string, balanceAfter int64) error {
	event := transaction.NewPostedEvent(txn, accountNumber, counterpartyNumber, balanceAfter, CorrelationIDFrom(ctx))
	msg, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.outbox.WithTx(tx).Create(ctx, msg)
}

func (s *Service) mapError(err error) error {
	return mapLedgerError(err)
}

// mapLedgerError converts repository and entity errors into the closed ledger
// error-kind taxonomy. Unexpected errors pass through untouched.
func mapLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, account.ErrAccountNotFound{}):
		return NewError(KindNotFound, "account not found")
	case errors.Is(err, account.ErrAccountClosed):
		return NewError(KindClosed, "account is closed")
	case errors.Is(err, account.ErrInsufficientFunds):
		return NewError(KindInsufficientFunds, "balance is lower than the requested amount")
	case errors.Is(err, account.ErrInvalidAmount):
		return NewError(KindInvalidAmount, "amount must be a positive number of minor units")
	case errors.Is(err, account.ErrNonZeroBalance):
		return NewError(KindNonZeroBalance, "account balance must be zero before closing")
	default:
		return err
	}
}
