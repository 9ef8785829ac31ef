package bidding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"starlots/internal/domain/lots"
)

// TestValidateBidAmount tests the strict increment-by-one rule
func TestValidateBidAmount(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		currentPrice int64
		wantErr      error
	}{
		{
			name:         "valid first bid",
			amount:       1,
			currentPrice: 0,
			wantErr:      nil,
		},
		{
			name:         "valid increment",
			amount:       8,
			currentPrice: 7,
			wantErr:      nil,
		},
		{
			name:         "invalid - equal to current price",
			amount:       7,
			currentPrice: 7,
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "invalid - below current price",
			amount:       3,
			currentPrice: 7,
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "invalid - raise by more than one",
			amount:       10,
			currentPrice: 7,
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "invalid - zero",
			amount:       0,
			currentPrice: 0,
			wantErr:      ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBidAmount(tt.amount, tt.currentPrice)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestNextDeadline tests the deadline schedule: the first bid opens the
// auction window, later bids extend the current deadline.
func TestNextDeadline(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first bid schedules the auction window", func(t *testing.T) {
		lot := &lots.Lot{AuctionDuration: 60}

		got := nextDeadline(lot, t0, 5*time.Minute)

		assert.Equal(t, t0.Add(60*time.Minute), got)
	})

	t.Run("later bids extend the current deadline, not now", func(t *testing.T) {
		deadline := t0.Add(60 * time.Minute)
		lot := &lots.Lot{AuctionDuration: 60, Deadline: &deadline}

		// Bid lands one minute before expiry; the extension still
		// compounds from the scheduled deadline.
		got := nextDeadline(lot, t0.Add(59*time.Minute), 5*time.Minute)

		assert.Equal(t, t0.Add(65*time.Minute), got)
	})

	t.Run("extension compounds across bids", func(t *testing.T) {
		deadline := t0.Add(65 * time.Minute)
		lot := &lots.Lot{AuctionDuration: 60, Deadline: &deadline}

		got := nextDeadline(lot, t0.Add(64*time.Minute), 5*time.Minute)

		assert.Equal(t, t0.Add(70*time.Minute), got)
	})
}
