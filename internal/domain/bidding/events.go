package bidding

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event
type EventType string

const (
	EventTypeBidPlaced EventType = "bid.placed"
	EventTypeLotSold   EventType = "lot.sold"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeBidPlaced, EventTypeLotSold:
		return true
	default:
		return false
	}
}

// OutboxStatus represents the processing state of an outbox event
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// IsTerminal reports whether the event has finished processing. Terminal
// events carry a processed_at timestamp.
func (s OutboxStatus) IsTerminal() bool {
	switch s {
	case OutboxStatusPublished, OutboxStatusFailed:
		return true
	default:
		return false
	}
}

// OutboxEvent represents an event waiting to be published. It is written in
// the same transaction as the state change it describes.
type OutboxEvent struct {
	ID          uuid.UUID    `db:"id"`
	EventType   EventType    `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// BidPlacedEvent is the payload published for every accepted bid
type BidPlacedEvent struct {
	BidID     string    `json:"bid_id"`
	LotID     int64     `json:"lot_id"`
	BidderID  int64     `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// LotSoldEvent is the payload published when a lot settles. WinnerID is nil
// when the lot expired without bids.
type LotSoldEvent struct {
	LotID      int64     `json:"lot_id"`
	Name       string    `json:"name"`
	WinnerID   *int64    `json:"winner_id,omitempty"`
	FinalPrice int64     `json:"final_price"`
	SoldAt     time.Time `json:"sold_at"`
}
