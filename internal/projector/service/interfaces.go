package service

import (
	"context"

	"github.com/atlasbank/ledger/internal/domain/transaction"
)

// ProjectionService defines the interface for applying posted-ledger events
// to the statement read model.
type ProjectionService interface {
	ProjectEvent(ctx context.Context, event *transaction.PostedEvent) error
}
