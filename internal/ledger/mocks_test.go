package ledger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/domain/outbox"
	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTxRunner runs the unit directly, without a database. A nil pgx.Tx is
// passed through; the mocks ignore it.
type fakeTxRunner struct {
	attempts int
	// errs are returned per attempt before fn runs; nil entries run fn.
	errs []error
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	attempt := f.attempts
	f.attempts++
	if attempt < len(f.errs) && f.errs[attempt] != nil {
		return f.errs[attempt]
	}
	return fn(nil)
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id, userID)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	args := m.Called(ctx, number)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if accounts, ok := args.Get(0).([]*account.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *mockAccountRepo) LockOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id, userID)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type mockTransactionRepo struct {
	mock.Mock
	created []*transaction.Transaction
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	m.created = append(m.created, txn)
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if txn, ok := args.Get(0).(*transaction.Transaction); ok {
		return txn, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if txns, ok := args.Get(0).([]*transaction.Transaction); ok {
		return txns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransactionRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type mockOutboxRepo struct {
	mock.Mock
	created []*outbox.Message
}

func (m *mockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	m.created = append(m.created, message)
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if messages, ok := args.Get(0).([]*outbox.Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if message, ok := args.Get(0).(*outbox.Message); ok {
		return message, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

// openAccount returns an open account with the given balance, version-bumped
// as if the deposits already happened.
func openAccount(t *testing.T, userID uuid.UUID, number string, balance int64) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(userID, number, "checking")
	if err != nil {
		t.Fatalf("failed to build account: %v", err)
	}
	if balance > 0 {
		if err := acc.Deposit(balance); err != nil {
			t.Fatalf("failed to fund account: %v", err)
		}
	}
	return acc
}
