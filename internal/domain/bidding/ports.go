package bidding

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository defines the interface for outbox event persistence
type OutboxRepository interface {
	// SaveEvent saves an outbox event within a transaction
	SaveEvent(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error

	// GetPendingEvents retrieves pending events for processing.
	// Uses SELECT FOR UPDATE SKIP LOCKED to prevent race conditions.
	GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)

	// UpdateEventStatus updates the status of an event
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, status OutboxStatus) error
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// Publish publishes a message to the broker
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Notifier is the outbound notification channel the engine and sweeper call
// into. Implementations are best-effort: a failed send is reported as an
// error for the caller to log, never to abort a committed transition on.
type Notifier interface {
	// NotifyBidder sends a direct message to a bidder
	NotifyBidder(ctx context.Context, bidderID int64, text string) error

	// NotifyAdmin sends a message to the configured administrator
	NotifyAdmin(ctx context.Context, text string) error
}
