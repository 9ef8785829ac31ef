// Package testhelpers provides in-memory doubles for the persistence and
// notification ports, used by the domain unit tests.
package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"starlots/internal/domain/bidding"
	"starlots/internal/domain/lots"
)

// MemStore is an in-memory stand-in for the Postgres-backed lot, bid and
// outbox repositories. Its transaction manager serializes transactions with
// a single mutex and snapshots state at Begin, so commit/rollback behaves
// like the real store: a failed operation leaves no partial update behind.
type MemStore struct {
	mu     sync.Mutex
	lots   map[int64]*lots.Lot
	bids   map[int64][]*lots.Bid
	events []*bidding.OutboxEvent
	nextID int64

	// FailSaveBid makes SaveBid fail, to exercise storage-error rollback
	FailSaveBid bool

	// FailMarkSoldLot makes MarkSold fail for that lot id, to exercise
	// per-lot failure isolation in the sweep
	FailMarkSoldLot int64
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		lots: make(map[int64]*lots.Lot),
		bids: make(map[int64][]*lots.Bid),
	}
}

// SeedLot inserts a lot as-is, assigning an id when none is set
func (s *MemStore) SeedLot(lot *lots.Lot) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == 0 {
		s.nextID++
		lot.ID = s.nextID
	} else if lot.ID > s.nextID {
		s.nextID = lot.ID
	}
	s.lots[lot.ID] = copyLot(lot)
	return lot.ID
}

// Events returns a copy of the recorded outbox events
func (s *MemStore) Events() []*bidding.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bidding.OutboxEvent, len(s.events))
	copy(out, s.events)
	return out
}

// BeginTx locks the store until the returned transaction commits or rolls back
func (s *MemStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s, snapshot: s.snapshotLocked()}, nil
}

// CreateLot inserts a new lot and returns its assigned id
func (s *MemStore) CreateLot(ctx context.Context, cmd lots.CreateLotCommand) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.lots[s.nextID] = &lots.Lot{
		ID:              s.nextID,
		Name:            cmd.Name,
		ImageURL:        cmd.ImageURL,
		AuctionDuration: cmd.AuctionDuration,
		Status:          lots.LotStatusActive,
		CreatedAt:       time.Now(),
		CreatedBy:       cmd.CreatedBy,
	}
	return s.nextID, nil
}

// GetLotByID retrieves a lot (non-transactional read)
func (s *MemStore) GetLotByID(ctx context.Context, lotID int64) (*lots.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLotLocked(lotID)
}

// GetLotByIDForUpdate retrieves a lot within the transaction holding the lock
func (s *MemStore) GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID int64) (*lots.Lot, error) {
	return s.getLotLocked(lotID)
}

// ListActiveLots retrieves lots still open for bidding, newest first
func (s *MemStore) ListActiveLots(ctx context.Context) ([]*lots.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var result []*lots.Lot
	for _, lot := range s.lots {
		if lot.Status == lots.LotStatusActive && (lot.Deadline == nil || lot.Deadline.After(now)) {
			result = append(result, copyLot(lot))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// ListSoldLots retrieves settled lots by settlement time descending
func (s *MemStore) ListSoldLots(ctx context.Context, limit int) ([]*lots.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*lots.Lot
	for _, lot := range s.lots {
		if lot.Status == lots.LotStatusSold {
			result = append(result, copyLot(lot))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SoldAt.After(*result[j].SoldAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListExpiredLots retrieves active lots whose deadline has passed
func (s *MemStore) ListExpiredLots(ctx context.Context, now time.Time) ([]*lots.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*lots.Lot
	for _, lot := range s.lots {
		if lot.Status == lots.LotStatusActive && lot.Deadline != nil && lot.Deadline.Before(now) {
			result = append(result, copyLot(lot))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateBidState applies an accepted bid within the transaction
func (s *MemStore) UpdateBidState(ctx context.Context, tx pgx.Tx, lotID int64, price int64, bidder lots.Bidder, deadline time.Time) error {
	lot, ok := s.lots[lotID]
	if !ok {
		return lots.ErrLotNotFound
	}
	leader := bidder
	d := deadline
	lot.CurrentPrice = price
	lot.LastBidder = &leader
	lot.Deadline = &d
	return nil
}

// MarkSold settles the lot within the transaction
func (s *MemStore) MarkSold(ctx context.Context, tx pgx.Tx, lotID int64, winner *lots.Bidder, soldAt time.Time) error {
	if s.FailMarkSoldLot == lotID {
		return fmt.Errorf("simulated storage failure")
	}
	lot, ok := s.lots[lotID]
	if !ok {
		return lots.ErrLotNotFound
	}
	lot.Status = lots.LotStatusSold
	if winner != nil {
		w := *winner
		lot.Winner = &w
	}
	at := soldAt
	lot.SoldAt = &at
	return nil
}

// SaveBid appends a bid within the transaction
func (s *MemStore) SaveBid(ctx context.Context, tx pgx.Tx, bid *lots.Bid) error {
	if s.FailSaveBid {
		return fmt.Errorf("simulated storage failure")
	}
	b := *bid
	s.bids[bid.LotID] = append(s.bids[bid.LotID], &b)
	return nil
}

// ListBidsByLotID retrieves a lot's bids, newest first
func (s *MemStore) ListBidsByLotID(ctx context.Context, lotID int64) ([]*lots.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.bids[lotID]
	result := make([]*lots.Bid, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		b := *stored[i]
		result = append(result, &b)
	}
	return result, nil
}

// SaveEvent saves an outbox event within the transaction
func (s *MemStore) SaveEvent(ctx context.Context, tx pgx.Tx, event *bidding.OutboxEvent) error {
	e := *event
	s.events = append(s.events, &e)
	return nil
}

// GetPendingEvents retrieves pending events within the transaction
func (s *MemStore) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*bidding.OutboxEvent, error) {
	var result []*bidding.OutboxEvent
	for _, event := range s.events {
		if event.Status == bidding.OutboxStatusPending {
			result = append(result, event)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// UpdateEventStatus updates the status of an event within the transaction
func (s *MemStore) UpdateEventStatus(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, status bidding.OutboxStatus) error {
	for _, event := range s.events {
		if event.ID == eventID {
			event.Status = status
			return nil
		}
	}
	return fmt.Errorf("event not found")
}

func (s *MemStore) getLotLocked(lotID int64) (*lots.Lot, error) {
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, lots.ErrLotNotFound
	}
	return copyLot(lot), nil
}

type memState struct {
	lots   map[int64]*lots.Lot
	bids   map[int64][]*lots.Bid
	events []*bidding.OutboxEvent
}

func (s *MemStore) snapshotLocked() *memState {
	snap := &memState{
		lots:   make(map[int64]*lots.Lot, len(s.lots)),
		bids:   make(map[int64][]*lots.Bid, len(s.bids)),
		events: make([]*bidding.OutboxEvent, len(s.events)),
	}
	for id, lot := range s.lots {
		snap.lots[id] = copyLot(lot)
	}
	for id, list := range s.bids {
		copied := make([]*lots.Bid, len(list))
		for i, bid := range list {
			b := *bid
			copied[i] = &b
		}
		snap.bids[id] = copied
	}
	copy(snap.events, s.events)
	return snap
}

// memTx implements pgx.Tx over the store's mutex. Only the lifecycle
// methods are real; the engine never issues raw SQL through it.
type memTx struct {
	store    *MemStore
	snapshot *memState
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.lots = t.snapshot.lots
	t.store.bids = t.snapshot.bids
	t.store.events = t.snapshot.events
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *memTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, fmt.Errorf("not implemented")
}

func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("not implemented")
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *memTx) Conn() *pgx.Conn { return nil }

func copyLot(lot *lots.Lot) *lots.Lot {
	copied := *lot
	if lot.Deadline != nil {
		d := *lot.Deadline
		copied.Deadline = &d
	}
	if lot.SoldAt != nil {
		at := *lot.SoldAt
		copied.SoldAt = &at
	}
	if lot.LastBidder != nil {
		b := *lot.LastBidder
		copied.LastBidder = &b
	}
	if lot.Winner != nil {
		w := *lot.Winner
		copied.Winner = &w
	}
	copied.History = nil
	return &copied
}
