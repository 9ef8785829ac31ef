package bidding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"starlots/internal/domain/lots"
	"starlots/pkg/database"
)

// DefaultExtension is the deadline extension applied per accepted bid when
// no other value is configured.
const DefaultExtension = 5 * time.Minute

// validateBidAmount enforces the strict increment-by-one rule
func validateBidAmount(amount, currentPrice int64) error {
	if amount != currentPrice+1 {
		return ErrInvalidAmount
	}
	return nil
}

// nextDeadline computes the deadline after an accepted bid. The first bid
// schedules the lot's auction window; every later bid extends the current
// deadline by the configured amount, regardless of how close to expiry the
// bid landed.
func nextDeadline(lot *lots.Lot, now time.Time, extension time.Duration) time.Time {
	if lot.Deadline == nil {
		return now.Add(time.Duration(lot.AuctionDuration) * time.Minute)
	}
	return lot.Deadline.Add(extension)
}

// Service implements the auction lifecycle state machine: bid acceptance
// and lot settlement, each atomic per lot.
type Service struct {
	txManager  database.TransactionManager
	lotRepo    lots.Repository
	bidRepo    lots.BidRepository
	outboxRepo OutboxRepository
	extension  time.Duration

	now func() time.Time
}

// NewService creates a new bidding service
func NewService(
	txManager database.TransactionManager,
	lotRepo lots.Repository,
	bidRepo lots.BidRepository,
	outboxRepo OutboxRepository,
	extension time.Duration,
) *Service {
	if extension <= 0 {
		extension = DefaultExtension
	}
	return &Service{
		txManager:  txManager,
		lotRepo:    lotRepo,
		bidRepo:    bidRepo,
		outboxRepo: outboxRepo,
		extension:  extension,
		now:        time.Now,
	}
}

// PlaceBid validates and applies a bid against a lot.
//
// On success it returns the refreshed lot (history attached) and the
// previous leader, so the caller can notify the outbid party. The previous
// leader is nil when there was none or when the bidder outbid themselves.
func (s *Service) PlaceBid(ctx context.Context, lotID int64, bidder lots.Bidder, amount int64) (*lots.Lot, *lots.Bidder, error) {
	now := s.now()

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback if commit is not called
	}()

	// Lock the lot row so concurrent bids and the sweep serialize per lot
	lot, err := s.lotRepo.GetLotByIDForUpdate(ctx, tx, lotID)
	if err != nil {
		return nil, nil, err
	}

	// A bid landing after the deadline is rejected, never settled here;
	// settlement belongs to the sweeper alone.
	if lot.IsClosed(now) {
		return nil, nil, ErrAuctionClosed
	}

	if valErr := validateBidAmount(amount, lot.CurrentPrice); valErr != nil {
		return nil, nil, valErr
	}

	var previous *lots.Bidder
	if lot.LastBidder != nil && lot.LastBidder.ID != bidder.ID {
		leader := *lot.LastBidder
		previous = &leader
	}

	deadline := nextDeadline(lot, now, s.extension)

	if updErr := s.lotRepo.UpdateBidState(ctx, tx, lotID, amount, bidder, deadline); updErr != nil {
		return nil, nil, fmt.Errorf("failed to update lot state: %w", updErr)
	}

	bid := &lots.Bid{
		ID:        uuid.New(),
		LotID:     lotID,
		Bidder:    bidder,
		Amount:    amount,
		CreatedAt: now,
	}
	if saveErr := s.bidRepo.SaveBid(ctx, tx, bid); saveErr != nil {
		return nil, nil, fmt.Errorf("failed to save bid: %w", saveErr)
	}

	if outboxErr := s.saveEvent(ctx, tx, EventTypeBidPlaced, BidPlacedEvent{
		BidID:     bid.ID.String(),
		LotID:     lotID,
		BidderID:  bidder.ID,
		Amount:    amount,
		Timestamp: now,
	}); outboxErr != nil {
		return nil, nil, outboxErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	refreshed, err := s.lotRepo.GetLotByID(ctx, lotID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload lot: %w", err)
	}
	history, err := s.bidRepo.ListBidsByLotID(ctx, lotID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bid history: %w", err)
	}
	refreshed.History = history

	return refreshed, previous, nil
}

// Settle transitions an active lot to sold, copying the current leader into
// the winner fields. A lot with no bids is still settled, with nil winner.
// Settlement is idempotent: a second call returns ErrAlreadySold and leaves
// the row untouched.
func (s *Service) Settle(ctx context.Context, lotID int64) (*lots.Lot, error) {
	now := s.now()

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	lot, err := s.lotRepo.GetLotByIDForUpdate(ctx, tx, lotID)
	if err != nil {
		return nil, err
	}

	if lot.IsSold() {
		return nil, ErrAlreadySold
	}

	winner := lot.LastBidder
	if markErr := s.lotRepo.MarkSold(ctx, tx, lotID, winner, now); markErr != nil {
		return nil, fmt.Errorf("failed to mark lot sold: %w", markErr)
	}

	event := LotSoldEvent{
		LotID:      lotID,
		Name:       lot.Name,
		FinalPrice: lot.CurrentPrice,
		SoldAt:     now,
	}
	if winner != nil {
		event.WinnerID = &winner.ID
	}
	if outboxErr := s.saveEvent(ctx, tx, EventTypeLotSold, event); outboxErr != nil {
		return nil, outboxErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	lot.Status = lots.LotStatusSold
	lot.Winner = winner
	lot.SoldAt = &now
	return lot, nil
}

func (s *Service) saveEvent(ctx context.Context, tx pgx.Tx, eventType EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	event := &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		Status:    OutboxStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}
