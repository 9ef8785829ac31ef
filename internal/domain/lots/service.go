package lots

import (
	"context"
	"fmt"
)

// Service errors
var (
	ErrInvalidName     = fmt.Errorf("lot name must not be empty")
	ErrInvalidImage    = fmt.Errorf("lot image reference must not be empty")
	ErrInvalidDuration = fmt.Errorf("auction duration must be greater than 0")
	ErrLotNotFound     = fmt.Errorf("lot not found")
)

// DefaultAuctionDuration is applied when a lot is created without one
const DefaultAuctionDuration = 60 // minutes

// DefaultSoldLimit caps the public sold-lots listing
const DefaultSoldLimit = 50

// Service implements the catalog operations over lots
type Service struct {
	lotRepo Repository
	bidRepo BidRepository
}

// NewService creates a new lot service
func NewService(lotRepo Repository, bidRepo BidRepository) *Service {
	return &Service{lotRepo: lotRepo, bidRepo: bidRepo}
}

// CreateLot validates and persists a new lot
func (s *Service) CreateLot(ctx context.Context, cmd CreateLotCommand) (int64, error) {
	if cmd.Name == "" {
		return 0, ErrInvalidName
	}
	if cmd.ImageURL == "" {
		return 0, ErrInvalidImage
	}
	if cmd.AuctionDuration == 0 {
		cmd.AuctionDuration = DefaultAuctionDuration
	}
	if cmd.AuctionDuration < 0 {
		return 0, ErrInvalidDuration
	}

	lotID, err := s.lotRepo.CreateLot(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("failed to create lot: %w", err)
	}
	return lotID, nil
}

// GetLot retrieves a lot with its full bid history attached
func (s *Service) GetLot(ctx context.Context, lotID int64) (*Lot, error) {
	lot, err := s.lotRepo.GetLotByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := s.attachHistory(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// ListActiveLots retrieves open lots, histories attached
func (s *Service) ListActiveLots(ctx context.Context) ([]*Lot, error) {
	active, err := s.lotRepo.ListActiveLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active lots: %w", err)
	}
	for _, lot := range active {
		if err := s.attachHistory(ctx, lot); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// ListSoldLots retrieves settled lots, histories attached
func (s *Service) ListSoldLots(ctx context.Context, limit int) ([]*Lot, error) {
	if limit <= 0 {
		limit = DefaultSoldLimit
	}
	sold, err := s.lotRepo.ListSoldLots(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sold lots: %w", err)
	}
	for _, lot := range sold {
		if err := s.attachHistory(ctx, lot); err != nil {
			return nil, err
		}
	}
	return sold, nil
}

func (s *Service) attachHistory(ctx context.Context, lot *Lot) error {
	history, err := s.bidRepo.ListBidsByLotID(ctx, lot.ID)
	if err != nil {
		return fmt.Errorf("failed to load bid history for lot %d: %w", lot.ID, err)
	}
	lot.History = history
	return nil
}
