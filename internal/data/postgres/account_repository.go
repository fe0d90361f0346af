// Package postgres provides PostgreSQL implementations of the domain
// repositories. All monetary columns are BIGINT minor units; no floating
// point is involved anywhere.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = "id, user_id, number, account_type, nickname, balance, version, closed_at, created_at, updated_at"

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing atomic operations
// across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. A colliding account number surfaces as
// ErrDuplicateNumber so the caller can regenerate and retry.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, number, account_type, nickname, balance, version, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.UserID,
		acc.Number,
		acc.Type,
		acc.Nickname,
		acc.Balance,
		acc.Version,
		acc.ClosedAt,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return account.ErrDuplicateNumber{Number: acc.Number}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE id = $1
	`, accountColumns)

	acc, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetOwned retrieves an account only when it belongs to the given user. A
// missing row and a foreign row both come back as ErrAccountNotFound.
func (r *AccountRepository) GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE id = $1 AND user_id = $2
	`, accountColumns)

	acc, err := r.scanRow(r.querier.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get owned account", "id", id.String(), "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get owned account: %w", err)
	}

	return acc, nil
}

// GetByNumber resolves an account by its routing number. Returns nil, nil
// when no account carries the number; closed-account filtering is the
// caller's concern.
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE number = $1
	`, accountColumns)

	acc, err := r.scanRow(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}

	return acc, nil
}

// ListByUser returns every account of the user, oldest first.
func (r *AccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, accountColumns)

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := r.scanRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// Update persists the full row guarded by the optimistic version column.
// Returns ErrConcurrentModification when the row changed under us.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET account_type = $1, nickname = $2, balance = $3, version = $4, closed_at = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Type,
		acc.Nickname,
		acc.Balance,
		acc.Version,
		acc.ClosedAt,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockOwned obtains a pessimistic lock on an account owned by the user and
// returns its current state. Must run inside a transaction.
func (r *AccountRepository) LockOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, accountColumns)

	acc, err := r.scanRow(r.querier.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock owned account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock owned account: %w", err)
	}

	return acc, nil
}

// LockForUpdate obtains a pessimistic lock without an ownership check; used
// for the destination side of transfers, which may belong to any user.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountColumns)

	acc, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) scanRow(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Number,
		&acc.Type,
		&acc.Nickname,
		&acc.Balance,
		&acc.Version,
		&acc.ClosedAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
