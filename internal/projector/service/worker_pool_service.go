package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProjectionService runs projections on a bounded worker pool
type WorkerPoolProjectionService struct {
	baseService ProjectionService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProjectionService(
	baseService ProjectionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProjectionService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProjectionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProjectEvent submits an event to the worker pool for projection.
func (s *WorkerPoolProjectionService) ProjectEvent(ctx context.Context, event *transaction.PostedEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Submitting posted event to worker pool",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
	)

	// Create a channel to receive the result of the projection
	resultChan := make(chan error, 1)

	// Store the result channel in the result map
	transactionID := event.TransactionID.String()
	s.mu.Lock()
	s.results[transactionID] = resultChan
	s.mu.Unlock()

	// Create a copy of the event to avoid data races
	eventCopy := *event

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		// Project the event using the base service
		err := s.baseService.ProjectEvent(ctx, &eventCopy)

		// Send the result to the channel
		resultChan <- err

		// Remove the result channel from the map
		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit posted event to worker pool",
			"transaction_id", event.TransactionID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProjectionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProjectionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProjectionService) Capacity() int {
	return s.pool.Cap()
}
