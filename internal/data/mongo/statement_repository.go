package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atlasbank/ledger/internal/domain/statement"
)

const (
	// StatementCollectionName is the name of the statement collection in MongoDB
	StatementCollectionName = "statement_entries"
)

// StatementRepository implements the statement.Repository interface for
// MongoDB. The collection is a projection of the PostgreSQL transaction log;
// it is rebuilt from events and never consulted for balance decisions.
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) statement.Repository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a statement entry keyed by transaction ID. Replaying the
// same event is a no-op overwrite, so at-least-once delivery is safe.
func (r *StatementRepository) Upsert(ctx context.Context, entry *statement.Entry) error {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": entry.TransactionID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, entry, opts)
	if err != nil {
		r.logger.Error("Failed to upsert statement entry",
			"transaction_id", entry.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert statement entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a statement entry by its transaction ID.
func (r *StatementRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var entry statement.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statement.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get statement entry",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entry: %w", err)
	}

	return &entry, nil
}

// ListByAccount retrieves paginated statement entries for an account,
// newest first.
func (r *StatementRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"posted_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list statement entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list statement entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*statement.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode statement entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode statement entries: %w", err)
	}

	return entries, nil
}

// CountByAccount counts the statement entries of an account
func (r *StatementRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count statement entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count statement entries: %w", err)
	}

	return count, nil
}
