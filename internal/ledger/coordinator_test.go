package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator() (*Coordinator, *fakeTxRunner, *mockAccountRepo, *mockTransactionRepo, *mockOutboxRepo) {
	db := &fakeTxRunner{}
	accounts := &mockAccountRepo{}
	transactions := &mockTransactionRepo{}
	outboxRepo := &mockOutboxRepo{}
	c := NewCoordinator(db, accounts, transactions, outboxRepo, newTestLogger())
	return c, db, accounts, transactions, outboxRepo
}

func expectPairWrites(accounts *mockAccountRepo, transactions *mockTransactionRepo, outboxRepo *mockOutboxRepo) {
	transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Twice()
	accounts.On("Update", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil).Twice()
	outboxRepo.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil).Twice()
}

func TestCoordinator_Transfer(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("moves funds as an additive-inverse pair", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000101", 1000)
		dst := openAccount(t, uuid.New(), "9000000102", 200)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()
		expectPairWrites(accounts, transactions, outboxRepo)

		receipt, err := c.Transfer(ctx, userID, src.ID, dst.Number, 300, "rent share")
		require.NoError(t, err)

		assert.Equal(t, transaction.TypeTransferOut, receipt.Source.Type)
		assert.Equal(t, transaction.TypeTransferIn, receipt.Destination.Type)
		assert.Equal(t, int64(-300), receipt.Source.Amount)
		assert.Equal(t, int64(300), receipt.Destination.Amount)
		assert.Equal(t, int64(0), receipt.Source.Amount+receipt.Destination.Amount)

		// Each side references the other as counterparty.
		require.NotNil(t, receipt.Source.CounterpartyID)
		require.NotNil(t, receipt.Destination.CounterpartyID)
		assert.Equal(t, dst.ID, *receipt.Source.CounterpartyID)
		assert.Equal(t, src.ID, *receipt.Destination.CounterpartyID)

		assert.Equal(t, int64(700), receipt.SourceBalance)
		assert.Equal(t, int64(700), src.Balance)
		assert.Equal(t, int64(500), dst.Balance)

		// One event per side, carrying the post-mutation balance.
		require.Len(t, outboxRepo.created, 2)
	})

	t.Run("unknown destination number", func(t *testing.T) {
		c, _, accounts, _, _ := newTestCoordinator()
		src := openAccount(t, userID, "9000000103", 1000)

		accounts.On("GetByNumber", ctx, "0000000000").Return(nil, nil).Once()

		_, err := c.Transfer(ctx, userID, src.ID, "0000000000", 100, "")
		assert.True(t, IsKind(err, KindNotFound))
	})

	t.Run("closed destination is indistinguishable from missing", func(t *testing.T) {
		c, _, accounts, _, _ := newTestCoordinator()
		src := openAccount(t, userID, "9000000104", 1000)
		dst := openAccount(t, uuid.New(), "9000000105", 0)
		require.NoError(t, dst.Close())

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()

		_, err := c.Transfer(ctx, userID, src.ID, dst.Number, 100, "")
		assert.True(t, IsKind(err, KindNotFound))
	})

	t.Run("transfer to self", func(t *testing.T) {
		c, _, accounts, _, _ := newTestCoordinator()
		src := openAccount(t, userID, "9000000106", 1000)

		accounts.On("GetByNumber", ctx, src.Number).Return(src, nil).Once()

		_, err := c.Transfer(ctx, userID, src.ID, src.Number, 100, "")
		assert.True(t, IsKind(err, KindSameAccount))
	})

	t.Run("insufficient funds fails the whole unit", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000107", 50)
		dst := openAccount(t, uuid.New(), "9000000108", 0)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()

		_, err := c.Transfer(ctx, userID, src.ID, dst.Number, 100, "")
		assert.True(t, IsKind(err, KindInsufficientFunds))
		assert.Empty(t, transactions.created)
		assert.Empty(t, outboxRepo.created)
		assert.Equal(t, int64(0), dst.Balance)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		c, db, _, _, _ := newTestCoordinator()

		_, err := c.Transfer(ctx, userID, uuid.New(), "9000000109", 0, "")
		assert.True(t, IsKind(err, KindInvalidAmount))
		assert.Equal(t, 0, db.attempts)
	})

	t.Run("failure between the two halves voids the whole unit", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000112", 1000)
		dst := openAccount(t, uuid.New(), "9000000113", 0)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()

		// The TRANSFER_OUT side lands, then the TRANSFER_IN insert fails:
		// the error must abort the unit before the destination is touched.
		boom := errors.New("insert failed")
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		accounts.On("Update", mock.Anything, src).Return(nil).Once()
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(boom).Once()

		receipt, err := c.Transfer(ctx, userID, src.ID, dst.Number, 300, "")
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, receipt)
		accounts.AssertNotCalled(t, "Update", mock.Anything, dst)
		assert.Empty(t, outboxRepo.created)
	})

	t.Run("failure on the destination balance update voids the whole unit", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000114", 1000)
		dst := openAccount(t, uuid.New(), "9000000115", 0)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()

		boom := errors.New("update failed")
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Twice()
		accounts.On("Update", mock.Anything, src).Return(nil).Once()
		accounts.On("Update", mock.Anything, dst).Return(boom).Once()

		receipt, err := c.Transfer(ctx, userID, src.ID, dst.Number, 300, "")
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, receipt)
		assert.Empty(t, outboxRepo.created)
	})

	t.Run("locks in ascending id order for either direction", func(t *testing.T) {
		// The same pair transferred both ways must lock rows in the same
		// order; exercised here via the lower-id account being the dest.
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000110", 500)
		dst := openAccount(t, uuid.New(), "9000000111", 0)
		if lessUUID(src.ID, dst.ID) {
			src.ID, dst.ID = dst.ID, src.ID
		}

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		expectPairWrites(accounts, transactions, outboxRepo)

		receipt, err := c.Transfer(ctx, userID, src.ID, dst.Number, 200, "")
		require.NoError(t, err)
		assert.Equal(t, int64(300), receipt.SourceBalance)
	})
}

func TestCoordinator_BillPay(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("internal payee gets transfer semantics", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000201", 1000)
		dst := openAccount(t, uuid.New(), "9000000202", 0)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()
		expectPairWrites(accounts, transactions, outboxRepo)

		receipt, err := c.BillPay(ctx, userID, src.ID, dst.Number, 250, "electricity")
		require.NoError(t, err)

		assert.Equal(t, transaction.TypeBillPayOut, receipt.Source.Type)
		assert.Equal(t, transaction.TypeBillPayIn, receipt.Destination.Type)
		require.NotNil(t, receipt.Source.Description)
		assert.Equal(t, "electricity", *receipt.Source.Description)
		require.NotNil(t, receipt.Destination.Description)
		assert.Equal(t, "From account "+src.Number+": electricity", *receipt.Destination.Description)
		assert.Equal(t, int64(250), dst.Balance)
	})

	t.Run("internal payee with empty memo gets the default", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000203", 1000)
		dst := openAccount(t, uuid.New(), "9000000204", 0)

		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()
		expectPairWrites(accounts, transactions, outboxRepo)

		receipt, err := c.BillPay(ctx, userID, src.ID, dst.Number, 100, "")
		require.NoError(t, err)
		require.NotNil(t, receipt.Source.Description)
		assert.Equal(t, "Bill pay to "+dst.Number, *receipt.Source.Description)
		// Destination memo trims to just the source reference.
		require.NotNil(t, receipt.Destination.Description)
		assert.Equal(t, "From account "+src.Number+":", *receipt.Destination.Description)
	})

	t.Run("external payee is a one-sided debit", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000205", 1000)

		accounts.On("GetByNumber", ctx, "City Water Co").Return(nil, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Once()
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		accounts.On("Update", mock.Anything, src).Return(nil).Once()
		outboxRepo.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()

		receipt, err := c.BillPay(ctx, userID, src.ID, "City Water Co", 300, "")
		require.NoError(t, err)

		assert.Equal(t, transaction.TypeBillPay, receipt.Source.Type)
		assert.Equal(t, int64(-300), receipt.Source.Amount)
		assert.Nil(t, receipt.Source.CounterpartyID)
		assert.Nil(t, receipt.Destination)
		require.NotNil(t, receipt.Source.Description)
		assert.Equal(t, "Bill pay to City Water Co", *receipt.Source.Description)
		assert.Equal(t, int64(700), receipt.SourceBalance)
		// Exactly one entry: money deliberately leaves the closed world.
		assert.Len(t, transactions.created, 1)
	})

	t.Run("paying the source account itself", func(t *testing.T) {
		c, _, accounts, _, _ := newTestCoordinator()
		src := openAccount(t, userID, "9000000206", 1000)

		accounts.On("GetByNumber", ctx, src.Number).Return(src, nil).Once()

		_, err := c.BillPay(ctx, userID, src.ID, src.Number, 100, "")
		assert.True(t, IsKind(err, KindSameAccount))
	})

	t.Run("blank payee", func(t *testing.T) {
		c, db, _, _, _ := newTestCoordinator()

		_, err := c.BillPay(ctx, userID, uuid.New(), "   ", 100, "")
		assert.True(t, IsKind(err, KindNotFound))
		assert.Equal(t, 0, db.attempts)
	})

	t.Run("closed internal account falls back to external payment", func(t *testing.T) {
		c, _, accounts, transactions, outboxRepo := newTestCoordinator()
		src := openAccount(t, userID, "9000000207", 1000)
		dst := openAccount(t, uuid.New(), "9000000208", 0)

		// Open at lookup time, closed by the time the lock lands.
		accounts.On("GetByNumber", ctx, dst.Number).Return(dst, nil).Once()
		accounts.On("LockOwned", ctx, src.ID, userID).Return(src, nil).Run(func(args mock.Arguments) {
			require.NoError(t, dst.Close())
		}).Once()
		accounts.On("LockForUpdate", ctx, dst.ID).Return(dst, nil).Once()
		transactions.On("Create", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return(nil).Once()
		accounts.On("Update", mock.Anything, src).Return(nil).Once()
		outboxRepo.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()

		receipt, err := c.BillPay(ctx, userID, src.ID, dst.Number, 100, "")
		require.NoError(t, err)
		assert.Equal(t, transaction.TypeBillPay, receipt.Source.Type)
		assert.Nil(t, receipt.Destination)
		assert.Equal(t, int64(0), dst.Balance)
	})
}
