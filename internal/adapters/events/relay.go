package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"starlots/internal/domain/bidding"
	"starlots/pkg/database"
)

// OutboxRelay polls the database for pending auction events and publishes
// them to the broker.
type OutboxRelay struct {
	outboxRepo bidding.OutboxRepository
	publisher  bidding.EventPublisher
	txManager  database.TransactionManager
	batchSize  int
	interval   time.Duration
	logger     *slog.Logger
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	outboxRepo bidding.OutboxRepository,
	publisher bidding.EventPublisher,
	txManager database.TransactionManager,
	batchSize int,
	interval time.Duration,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		txManager:  txManager,
		batchSize:  batchSize,
		interval:   interval,
		logger:     logger,
	}
}

// Run starts the polling loop. It returns only when the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial run
	if err := r.processBatch(ctx); err != nil {
		r.logger.Error("Error processing outbox batch", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.Error("Error processing outbox batch", "error", err)
			}
		}
	}
}

func (r *OutboxRelay) processBatch(ctx context.Context) error {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Fetch pending events with FOR UPDATE SKIP LOCKED
	events, err := r.outboxRepo.GetPendingEvents(ctx, tx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending events: %w", err)
	}

	if len(events) == 0 {
		return nil // Nothing to do
	}

	r.logger.Info("Publishing auction events", "count", len(events))

	for _, event := range events {
		err := r.publisher.Publish(ctx, Exchange, event.EventType.String(), event.Payload)
		if err != nil {
			// The transaction rolls back and the event stays pending,
			// so it will be retried on the next tick.
			return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
		}

		if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, bidding.OutboxStatusPublished); err != nil {
			return fmt.Errorf("failed to update event status %s: %w", event.ID, err)
		}
	}

	return tx.Commit(ctx)
}
