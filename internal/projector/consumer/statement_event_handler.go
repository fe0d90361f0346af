package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/atlasbank/ledger/internal/platform/messaging/producers"
	"github.com/atlasbank/ledger/internal/projector/service"
)

// StatementEventHandler handles incoming posted-ledger events from Kafka
type StatementEventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewStatementEventHandler creates a new handler
func NewStatementEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *StatementEventHandler {
	return &StatementEventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *StatementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event transaction.PostedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal posted event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received posted event for projection",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
		"type", string(event.Type),
		"amount", event.Amount,
	)

	if err := h.projectionService.ProjectEvent(ctx, &event); err != nil {
		logger.Error("Failed to project posted event",
			"transaction_id", event.TransactionID.String(),
			"account_id", event.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("projecting event %s failed: %w", event.TransactionID.String(), err)
	}

	logger.Info("Successfully projected posted event", "transaction_id", event.TransactionID.String())
	return nil // Success, commit offset
}
