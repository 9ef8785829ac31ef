package api

import (
	"time"

	"starlots/internal/domain/lots"
)

// CreateLotRequest is the admin payload for putting a lot under auction
type CreateLotRequest struct {
	Name            string `json:"name" binding:"required"`
	ImageURL        string `json:"image_url" binding:"required"`
	AuctionDuration int    `json:"auction_duration"`
}

// PlaceBidRequest identifies the lot being bid on. The amount is not
// client-supplied: the service always bids the current price plus one.
type PlaceBidRequest struct {
	LotID int64 `json:"lot_id" binding:"required"`
}

// BidderResponse mirrors the bidder identity fields
type BidderResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// BidResponse is one bid history entry, flattened the way clients consume it
type BidResponse struct {
	ID        string    `json:"id"`
	LotID     int64     `json:"lot_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// LotResponse is the wire shape of a lot, bid history included
type LotResponse struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	ImageURL        string          `json:"image_url"`
	AuctionDuration int             `json:"auction_duration"`
	CurrentPrice    int64           `json:"current_price"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	LastBidder      *BidderResponse `json:"last_bidder,omitempty"`
	Winner          *BidderResponse `json:"winner,omitempty"`
	SoldAt          *time.Time      `json:"sold_at,omitempty"`
	BidHistory      []BidResponse   `json:"bid_history"`
}

// ListLotsResponse is the combined public listing payload
type ListLotsResponse struct {
	Success    bool          `json:"success"`
	ActiveLots []LotResponse `json:"active_lots"`
	SoldLots   []LotResponse `json:"sold_lots"`
}

func toBidderResponse(b *lots.Bidder) *BidderResponse {
	if b == nil {
		return nil
	}
	return &BidderResponse{ID: b.ID, Username: b.Username, FirstName: b.FirstName}
}

func toLotResponse(lot *lots.Lot) LotResponse {
	resp := LotResponse{
		ID:              lot.ID,
		Name:            lot.Name,
		ImageURL:        lot.ImageURL,
		AuctionDuration: lot.AuctionDuration,
		CurrentPrice:    lot.CurrentPrice,
		Status:          lot.Status.String(),
		CreatedAt:       lot.CreatedAt,
		Deadline:        lot.Deadline,
		LastBidder:      toBidderResponse(lot.LastBidder),
		Winner:          toBidderResponse(lot.Winner),
		SoldAt:          lot.SoldAt,
		BidHistory:      make([]BidResponse, 0, len(lot.History)),
	}
	for _, bid := range lot.History {
		resp.BidHistory = append(resp.BidHistory, BidResponse{
			ID:        bid.ID.String(),
			LotID:     bid.LotID,
			UserID:    bid.Bidder.ID,
			Username:  bid.Bidder.Username,
			FirstName: bid.Bidder.FirstName,
			Amount:    bid.Amount,
			Timestamp: bid.CreatedAt,
		})
	}
	return resp
}

func toLotResponses(list []*lots.Lot) []LotResponse {
	result := make([]LotResponse, 0, len(list))
	for _, lot := range list {
		result = append(result, toLotResponse(lot))
	}
	return result
}
