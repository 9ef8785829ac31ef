package bidding_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starlots/internal/domain/bidding"
	"starlots/internal/domain/lots"
	"starlots/internal/testhelpers"
)

func newSweeper(store *testhelpers.MemStore, notifier bidding.Notifier) *bidding.Sweeper {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return bidding.NewSweeper(newEngine(store), store, notifier, time.Minute, logger)
}

func TestSweep_SettlesExpiredLots(t *testing.T) {
	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{}

	expired := time.Now().Add(-time.Minute)
	won := activeLot(60)
	won.Name = "Signed Vinyl"
	won.CurrentPrice = 12
	won.Deadline = &expired
	won.LastBidder = &lots.Bidder{ID: 100, Username: "alice", FirstName: "Alice"}
	wonID := store.SeedLot(won)

	future := time.Now().Add(time.Hour)
	running := activeLot(60)
	running.CurrentPrice = 2
	running.Deadline = &future
	running.LastBidder = &lots.Bidder{ID: 200, Username: "bob"}
	runningID := store.SeedLot(running)

	sweeper := newSweeper(store, notifier)
	require.NoError(t, sweeper.Sweep(context.Background()))

	settled, err := store.GetLotByID(context.Background(), wonID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusSold, settled.Status)
	require.NotNil(t, settled.Winner)
	assert.Equal(t, int64(100), settled.Winner.ID)

	// Lots still inside their window are untouched
	untouched, err := store.GetLotByID(context.Background(), runningID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusActive, untouched.Status)
	assert.Nil(t, untouched.Winner)

	sent := notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(100), sent[0].BidderID)
	assert.Contains(t, sent[0].Text, "Signed Vinyl")
	assert.Equal(t, int64(0), sent[1].BidderID, "admin summary goes to the admin channel")
	assert.Contains(t, sent[1].Text, "alice")
}

func TestSweep_UnsoldExpiryNotifiesAdminOnly(t *testing.T) {
	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{}

	expired := time.Now().Add(-time.Minute)
	lot := activeLot(60)
	lot.Name = "Dusty Lamp"
	lot.Deadline = &expired
	lotID := store.SeedLot(lot)

	sweeper := newSweeper(store, notifier)
	require.NoError(t, sweeper.Sweep(context.Background()))

	settled, err := store.GetLotByID(context.Background(), lotID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusSold, settled.Status)
	assert.Nil(t, settled.Winner)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(0), sent[0].BidderID)
	assert.Contains(t, sent[0].Text, "nobody")
}

func TestSweep_SecondPassIsIdle(t *testing.T) {
	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{}

	expired := time.Now().Add(-time.Minute)
	lot := activeLot(60)
	lot.CurrentPrice = 5
	lot.Deadline = &expired
	lot.LastBidder = &lots.Bidder{ID: 100, Username: "alice"}
	store.SeedLot(lot)

	sweeper := newSweeper(store, notifier)
	require.NoError(t, sweeper.Sweep(context.Background()))
	require.NoError(t, sweeper.Sweep(context.Background()))

	assert.Len(t, notifier.Sent(), 2, "settled lots are not re-announced")
	assert.Len(t, store.Events(), 1)
}

func TestSweep_LotFailureDoesNotAbortSweep(t *testing.T) {
	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{}

	expired := time.Now().Add(-time.Minute)
	broken := activeLot(60)
	broken.CurrentPrice = 2
	broken.Deadline = &expired
	broken.LastBidder = &lots.Bidder{ID: 100, Username: "alice"}
	brokenID := store.SeedLot(broken)
	store.FailMarkSoldLot = brokenID

	healthy := activeLot(60)
	healthy.Name = "Brass Compass"
	healthy.CurrentPrice = 4
	healthy.Deadline = &expired
	healthy.LastBidder = &lots.Bidder{ID: 200, Username: "bob"}
	healthyID := store.SeedLot(healthy)

	sweeper := newSweeper(store, notifier)
	require.NoError(t, sweeper.Sweep(context.Background()))

	// The failing lot is skipped, not settled
	stuck, err := store.GetLotByID(context.Background(), brokenID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusActive, stuck.Status)
	assert.Nil(t, stuck.Winner)

	// The lot behind it still settles and announces
	settled, err := store.GetLotByID(context.Background(), healthyID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusSold, settled.Status)
	require.NotNil(t, settled.Winner)
	assert.Equal(t, int64(200), settled.Winner.ID)

	sent := notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(200), sent[0].BidderID)
	assert.Contains(t, sent[0].Text, "Brass Compass")
	assert.Equal(t, int64(0), sent[1].BidderID)

	// Once the fault clears, the stuck lot settles on the next pass
	store.FailMarkSoldLot = 0
	require.NoError(t, sweeper.Sweep(context.Background()))

	recovered, err := store.GetLotByID(context.Background(), brokenID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusSold, recovered.Status)
}

func TestSweep_NotifierFailureDoesNotBlockSettlement(t *testing.T) {
	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{Err: errors.New("telegram unreachable")}

	expired := time.Now().Add(-time.Minute)
	lot := activeLot(60)
	lot.CurrentPrice = 3
	lot.Deadline = &expired
	lot.LastBidder = &lots.Bidder{ID: 100, Username: "alice"}
	lotID := store.SeedLot(lot)

	sweeper := newSweeper(store, notifier)
	require.NoError(t, sweeper.Sweep(context.Background()))

	settled, err := store.GetLotByID(context.Background(), lotID)
	require.NoError(t, err)
	assert.Equal(t, lots.LotStatusSold, settled.Status)
}
