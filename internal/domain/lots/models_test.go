package lots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLotStatusIsValid(t *testing.T) {
	assert.True(t, LotStatusActive.IsValid())
	assert.True(t, LotStatusSold.IsValid())
	assert.False(t, LotStatus("cancelled").IsValid())
	assert.False(t, LotStatus("").IsValid())
}

func TestBidderDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		bidder Bidder
		want   string
	}{
		{"username preferred", Bidder{ID: 1, Username: "alice", FirstName: "Alice"}, "alice"},
		{"first name fallback", Bidder{ID: 1, FirstName: "Alice"}, "Alice"},
		{"nothing known", Bidder{ID: 1}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bidder.DisplayName())
		})
	}
}

func TestLotIsClosed(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		lot  Lot
		want bool
	}{
		{"no bids yet", Lot{Status: LotStatusActive}, false},
		{"deadline ahead", Lot{Status: LotStatusActive, Deadline: &future}, false},
		{"deadline passed", Lot{Status: LotStatusActive, Deadline: &past}, true},
		{"deadline exactly now", Lot{Status: LotStatusActive, Deadline: &now}, false},
		{"sold without deadline", Lot{Status: LotStatusSold}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lot.IsClosed(now))
		})
	}
}

func TestLotNextPrice(t *testing.T) {
	assert.Equal(t, int64(1), (&Lot{}).NextPrice())
	assert.Equal(t, int64(8), (&Lot{CurrentPrice: 7}).NextPrice())
}
