package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/domain/outbox"
	"github.com/atlasbank/ledger/internal/domain/statement"
	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/atlasbank/ledger/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubTxRunner runs the unit directly without a real database transaction.
type stubTxRunner struct{}

func (stubTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *mockAccountRepo) GetOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *mockAccountRepo) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *mockAccountRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *mockAccountRepo) LockOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *mockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
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
}

func (m *mockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type mockStatementRepo struct {
	mock.Mock
}

func (m *mockStatementRepo) Upsert(ctx context.Context, entry *statement.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStatementRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Entry), args.Error(1)
}

func (m *mockStatementRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Entry), args.Error(1)
}

func (m *mockStatementRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

// testEnv bundles the mocks behind a real service and coordinator so handler
// tests exercise the full request path.
type testEnv struct {
	accounts     *mockAccountRepo
	transactions *mockTransactionRepo
	outbox       *mockOutboxRepo
	statements   *mockStatementRepo
	service      *ledger.Service
	coordinator  *ledger.Coordinator
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	env := &testEnv{
		accounts:     &mockAccountRepo{},
		transactions: &mockTransactionRepo{},
		outbox:       &mockOutboxRepo{},
		statements:   &mockStatementRepo{},
	}
	env.service = ledger.NewService(stubTxRunner{}, env.accounts, env.transactions, env.outbox, logger)
	env.coordinator = ledger.NewCoordinator(stubTxRunner{}, env.accounts, env.transactions, env.outbox, logger)
	return env
}

// setupRouter returns a router that injects the given caller identity,
// mirroring what the identity middleware does in production.
func setupRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	return router
}

func openTestAccount(t *testing.T, userID uuid.UUID, number string, balance int64) *account.Account {
	t.Helper()

	acc, err := account.NewAccount(userID, number, "checking")
	require.NoError(t, err)
	if balance > 0 {
		require.NoError(t, acc.Deposit(balance))
	}
	return acc
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()

	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data, "'data' field should not be nil")

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func decodeError(t *testing.T, body []byte) *ErrorInfo {
	t.Helper()

	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Error, "'error' field should not be nil")
	return topLevel.Error
}
