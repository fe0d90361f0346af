package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/statement"
	"github.com/atlasbank/ledger/internal/domain/transaction"
)

// StatementProjectionService writes posted-ledger events into the MongoDB
// statement read model. Entries are keyed by transaction ID, so replaying an
// event overwrites the same document and at-least-once delivery stays safe.
type StatementProjectionService struct {
	statementRepo statement.Repository
	logger        *slog.Logger
}

func NewStatementProjectionService(
	logger *slog.Logger,
	statementRepo statement.Repository,
) *StatementProjectionService {
	return &StatementProjectionService{
		statementRepo: statementRepo,
		logger:        logger,
	}
}

// ProjectEvent maps the event onto a statement entry and upserts it.
func (s *StatementProjectionService) ProjectEvent(ctx context.Context, event *transaction.PostedEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	entry := statement.FromEvent(event)

	if err := s.statementRepo.Upsert(ctx, entry); err != nil {
		logger.Error("Failed to project posted event into statement entry",
			"transaction_id", event.TransactionID.String(),
			"account_id", event.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to project event %s: %w", event.TransactionID.String(), err)
	}

	logger.Debug("Projected posted event into statement entry",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
		"type", string(event.Type),
	)
	return nil
}
