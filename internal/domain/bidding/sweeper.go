package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"starlots/internal/domain/lots"
)

// DefaultSweepInterval is the expiry polling cadence when none is configured
const DefaultSweepInterval = 60 * time.Second

// DefaultNotifyTimeout bounds each outbound notification attempt
const DefaultNotifyTimeout = 10 * time.Second

// Sweeper discovers lots past their deadline and settles them exactly once.
// It is the only settlement path in the system.
type Sweeper struct {
	service  *Service
	lotRepo  lots.Repository
	notifier Notifier
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(service *Service, lotRepo lots.Repository, notifier Notifier, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		service:  service,
		lotRepo:  lotRepo,
		notifier: notifier,
		interval: interval,
		timeout:  DefaultNotifyTimeout,
		logger:   logger,
	}
}

// Run starts the polling loop. It returns only when the context is
// cancelled; sweep errors are logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial run
	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("Sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// Sweep executes one polling cycle: list expired active lots and settle
// each. One lot's failure never aborts the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	expired, err := s.lotRepo.ListExpiredLots(ctx, s.service.now())
	if err != nil {
		return fmt.Errorf("failed to list expired lots: %w", err)
	}

	for _, lot := range expired {
		settled, err := s.service.Settle(ctx, lot.ID)
		if err != nil {
			// Another sweep got there first; nothing to do.
			if errors.Is(err, ErrAlreadySold) {
				continue
			}
			s.logger.Error("Failed to settle lot", "lot_id", lot.ID, "error", err)
			continue
		}

		s.logger.Info("Auction completed", "lot_id", settled.ID, "name", settled.Name, "final_price", settled.CurrentPrice)
		s.notifyResult(ctx, settled)
	}

	return nil
}

// notifyResult dispatches the settlement notifications after the state
// transition has been committed. Both sends are bounded best-effort.
func (s *Sweeper) notifyResult(ctx context.Context, lot *lots.Lot) {
	nctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if lot.Winner != nil {
		text := fmt.Sprintf(
			"🎉 Congratulations! You won the auction for '%s'.\n\nFinal price: %d ⭐\nMessage the administrator to claim your prize.",
			lot.Name, lot.CurrentPrice,
		)
		if err := s.notifier.NotifyBidder(nctx, lot.Winner.ID, text); err != nil {
			s.logger.Warn("Failed to notify winner", "lot_id", lot.ID, "winner_id", lot.Winner.ID, "error", err)
		}
	}

	winnerName := "nobody"
	if lot.Winner != nil {
		winnerName = lot.Winner.DisplayName()
	}
	summary := fmt.Sprintf(
		"🏆 Auction finished: '%s'\nWinner: %s\nPrice: %d ⭐\nTime: %s",
		lot.Name, winnerName, lot.CurrentPrice, lot.SoldAt.Format(time.DateTime),
	)
	if err := s.notifier.NotifyAdmin(nctx, summary); err != nil {
		s.logger.Warn("Failed to notify admin", "lot_id", lot.ID, "error", err)
	}
}
