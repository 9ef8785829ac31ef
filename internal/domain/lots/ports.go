package lots

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for lot persistence. It is a pure state
// container: validation lives in the services that drive it.
type Repository interface {
	// CreateLot inserts a new lot and returns its assigned id
	CreateLot(ctx context.Context, cmd CreateLotCommand) (int64, error)

	// GetLotByID retrieves a lot header by its ID
	GetLotByID(ctx context.Context, lotID int64) (*Lot, error)

	// GetLotByIDForUpdate retrieves a lot and locks its row for update.
	// This serializes concurrent bids and settlement on the same lot.
	// Must be called within a transaction.
	GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID int64) (*Lot, error)

	// ListActiveLots retrieves lots still open for bidding, newest first
	ListActiveLots(ctx context.Context) ([]*Lot, error)

	// ListSoldLots retrieves settled lots ordered by settlement time descending
	ListSoldLots(ctx context.Context, limit int) ([]*Lot, error)

	// ListExpiredLots retrieves active lots whose deadline has passed
	ListExpiredLots(ctx context.Context, now time.Time) ([]*Lot, error)

	// UpdateBidState applies an accepted bid to the lot row within a transaction
	UpdateBidState(ctx context.Context, tx pgx.Tx, lotID int64, price int64, bidder Bidder, deadline time.Time) error

	// MarkSold settles the lot within a transaction. winner may be nil when
	// the lot expired without bids.
	MarkSold(ctx context.Context, tx pgx.Tx, lotID int64, winner *Bidder, soldAt time.Time) error
}

// BidRepository defines the interface for bid history persistence
type BidRepository interface {
	// SaveBid appends a bid within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// ListBidsByLotID retrieves a lot's bids, newest first
	ListBidsByLotID(ctx context.Context, lotID int64) ([]*Bid, error)
}
