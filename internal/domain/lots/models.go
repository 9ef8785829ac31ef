package lots

import (
	"time"

	"github.com/google/uuid"
)

// LotStatus represents the lifecycle state of a lot
type LotStatus string

const (
	LotStatusActive LotStatus = "active"
	LotStatusSold   LotStatus = "sold"
)

// String returns the string representation of the status
func (s LotStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known lifecycle state
func (s LotStatus) IsValid() bool {
	switch s {
	case LotStatusActive, LotStatusSold:
		return true
	default:
		return false
	}
}

// Bidder identifies a bidding user as reported by the messenger
type Bidder struct {
	ID        int64  `db:"bidder_id" json:"id"`
	Username  string `db:"bidder_username" json:"username,omitempty"`
	FirstName string `db:"bidder_first_name" json:"first_name,omitempty"`
}

// DisplayName returns the best available human-readable name for the bidder
func (b Bidder) DisplayName() string {
	if b.Username != "" {
		return b.Username
	}
	if b.FirstName != "" {
		return b.FirstName
	}
	return "Unknown"
}

// Lot represents one auctioned item
//
// Deadline is nil until the first bid lands; after that it only moves
// forward. Winner and SoldAt are written exactly once, at settlement.
type Lot struct {
	ID              int64
	Name            string
	ImageURL        string
	AuctionDuration int // minutes, used only for the first deadline
	CurrentPrice    int64
	Status          LotStatus
	CreatedAt       time.Time
	CreatedBy       int64
	Deadline        *time.Time
	LastBidder      *Bidder
	Winner          *Bidder
	SoldAt          *time.Time

	// History holds the lot's bids, newest first. Populated on every
	// read that returns the lot to a caller.
	History []*Bid
}

// IsSold reports whether the lot has been settled
func (l *Lot) IsSold() bool {
	return l.Status == LotStatusSold
}

// IsClosed reports whether the lot no longer accepts bids at the given time
func (l *Lot) IsClosed(now time.Time) bool {
	if l.IsSold() {
		return true
	}
	return l.Deadline != nil && now.After(*l.Deadline)
}

// NextPrice returns the only amount the lot currently accepts
func (l *Lot) NextPrice() int64 {
	return l.CurrentPrice + 1
}

// Bid is one immutable entry in a lot's bid history
type Bid struct {
	ID        uuid.UUID `db:"id"`
	LotID     int64     `db:"lot_id"`
	Bidder    Bidder
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateLotCommand represents the command to put a new lot under auction
type CreateLotCommand struct {
	Name            string
	ImageURL        string
	AuctionDuration int // minutes
	CreatedBy       int64
}
