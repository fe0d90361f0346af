package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/atlasbank/ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the transaction.Repository interface for
// PostgreSQL. Rows are append-only: there is deliberately no update or
// delete here.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so entry appends commit
// together with the balance update they belong to.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a ledger entry. The database assigns seq, which breaks
// creation-time ties when listing.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, counterparty_id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq
	`

	err := r.querier.QueryRow(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.CounterpartyID,
		txn.Type,
		txn.Amount,
		txn.Description,
		txn.CreatedAt,
	).Scan(&txn.Seq)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a single ledger entry
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT id, account_id, counterparty_id, type, amount, description, created_at, seq
		FROM transactions
		WHERE id = $1
	`

	var txn transaction.Transaction
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.CounterpartyID,
		&txn.Type,
		&txn.Amount,
		&txn.Description,
		&txn.CreatedAt,
		&txn.Seq,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// ListByAccount returns entries newest first. Ties on created_at fall back
// to insertion order via seq.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT id, account_id, counterparty_id, type, amount, description, created_at, seq
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var txn transaction.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.CounterpartyID,
			&txn.Type,
			&txn.Amount,
			&txn.Description,
			&txn.CreatedAt,
			&txn.Seq,
		)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return transactions, nil
}

// CountByAccount counts the ledger entries of an account
func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// SumByAccount sums the signed amounts of an account's entries. The result
// must always equal the stored balance.
func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
	`

	var sum int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}

	return sum, nil
}
