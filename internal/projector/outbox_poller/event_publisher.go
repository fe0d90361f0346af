package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/outbox"
	"github.com/atlasbank/ledger/internal/platform/messaging/producers"
)

// EventPublisher pushes outbox messages onto the ledger events topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent decodes an outbox row and publishes the posted event to Kafka,
// marking the row PROCESSED once the broker has acknowledged the write.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to unmarshal posted event from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		// A corrupt payload never becomes publishable; park it immediately.
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to Kafka", "outbox_id", message.ID, "transaction_id", message.TransactionID)

	// Key by account so one account's events land on one partition in order.
	if err := p.producer.Publish(ctx, event.AccountID.String(), event); err != nil {
		logger.Error("Failed to publish posted event to Kafka", "transaction_id", event.TransactionID, "error", err)
		return fmt.Errorf("failed to publish posted event %s: %w", event.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("publish for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}
