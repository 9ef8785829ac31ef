package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"starlots/internal/adapters/cache"
	"starlots/internal/domain/bidding"
	"starlots/internal/domain/lots"
	"starlots/pkg/auth"
)

// adminSoldLimit is the sold-lots page size for the admin listing
const adminSoldLimit = 100

// Pinger reports storage connectivity for the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the auction HTTP API
type Handler struct {
	lotService *lots.Service
	bidService *bidding.Service
	notifier   bidding.Notifier
	listings   *cache.ListingsCache // nil disables caching
	db         Pinger
	adminID    int64
	logger     *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	lotService *lots.Service,
	bidService *bidding.Service,
	notifier bidding.Notifier,
	listings *cache.ListingsCache,
	db Pinger,
	adminID int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		lotService: lotService,
		bidService: bidService,
		notifier:   notifier,
		listings:   listings,
		db:         db,
		adminID:    adminID,
		logger:     logger,
	}
}

// isAdmin is the authorization predicate for admin-only operations
func (h *Handler) isAdmin(callerID int64) bool {
	return h.adminID != 0 && callerID == h.adminID
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  "connected",
	})
}

// ListLots handles GET /api/lots
func (h *Handler) ListLots(c *gin.Context) {
	ctx := c.Request.Context()

	if h.listings != nil {
		if payload, ok := h.listings.Get(ctx); ok {
			c.Data(http.StatusOK, "application/json", payload)
			return
		}
	}

	active, err := h.lotService.ListActiveLots(ctx)
	if err != nil {
		h.serverError(c, "ListLots", err)
		return
	}
	sold, err := h.lotService.ListSoldLots(ctx, lots.DefaultSoldLimit)
	if err != nil {
		h.serverError(c, "ListLots", err)
		return
	}

	resp := ListLotsResponse{
		Success:    true,
		ActiveLots: toLotResponses(active),
		SoldLots:   toLotResponses(sold),
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		h.serverError(c, "ListLots", err)
		return
	}
	if h.listings != nil {
		h.listings.Set(ctx, payload)
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// GetLot handles GET /api/lots/:id
func (h *Handler) GetLot(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid lot id"})
		return
	}

	lot, err := h.lotService.GetLot(c.Request.Context(), lotID)
	if err != nil {
		if errors.Is(err, lots.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "lot not found"})
			return
		}
		h.serverError(c, "GetLot", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "lot": toLotResponse(lot)})
}

// PlaceBid handles POST /api/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()

	// The caller never picks an amount: this is a strict increment-by-one
	// auction, so the next acceptable price is derived from the lot.
	lot, err := h.lotService.GetLot(ctx, req.LotID)
	if err != nil {
		if errors.Is(err, lots.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "lot not found"})
			return
		}
		h.serverError(c, "PlaceBid", err)
		return
	}

	bidder := lots.Bidder{ID: claims.UserID, Username: claims.Username, FirstName: claims.FirstName}
	updated, previous, err := h.bidService.PlaceBid(ctx, req.LotID, bidder, lot.NextPrice())
	if err != nil {
		h.bidError(c, err)
		return
	}

	if h.listings != nil {
		h.listings.Invalidate(ctx)
	}

	if previous != nil {
		h.notifyOutbid(*previous, updated)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "lot": toLotResponse(updated)})
}

// CreateLot handles POST /admin/lots
func (h *Handler) CreateLot(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok || !h.isAdmin(claims.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "administrators only"})
		return
	}

	var req CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	lotID, err := h.lotService.CreateLot(ctx, lots.CreateLotCommand{
		Name:            req.Name,
		ImageURL:        req.ImageURL,
		AuctionDuration: req.AuctionDuration,
		CreatedBy:       claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, lots.ErrInvalidName), errors.Is(err, lots.ErrInvalidImage), errors.Is(err, lots.ErrInvalidDuration):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		default:
			h.serverError(c, "CreateLot", err)
		}
		return
	}

	if h.listings != nil {
		h.listings.Invalidate(ctx)
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "lot_id": lotID})
}

// AdminListLots handles GET /admin/lots
func (h *Handler) AdminListLots(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok || !h.isAdmin(claims.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "administrators only"})
		return
	}

	ctx := c.Request.Context()
	active, err := h.lotService.ListActiveLots(ctx)
	if err != nil {
		h.serverError(c, "AdminListLots", err)
		return
	}
	sold, err := h.lotService.ListSoldLots(ctx, adminSoldLimit)
	if err != nil {
		h.serverError(c, "AdminListLots", err)
		return
	}

	c.JSON(http.StatusOK, ListLotsResponse{
		Success:    true,
		ActiveLots: toLotResponses(active),
		SoldLots:   toLotResponses(sold),
	})
}

// bidError maps engine errors onto HTTP statuses
func (h *Handler) bidError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lots.ErrLotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "lot not found"})
	case errors.Is(err, bidding.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid bid amount"})
	case errors.Is(err, bidding.ErrAuctionClosed), errors.Is(err, bidding.ErrAlreadySold):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "auction is closed"})
	default:
		h.serverError(c, "PlaceBid", err)
	}
}

// notifyOutbid tells the previous leader they lost the lead. Dispatched
// after the bid committed, detached from the request lifecycle, one
// bounded attempt.
func (h *Handler) notifyOutbid(previous lots.Bidder, lot *lots.Lot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), bidding.DefaultNotifyTimeout)
		defer cancel()

		text := fmt.Sprintf(
			"⚠️ Your bid on '%s' has been beaten!\n\nCurrent price: %d ⭐\nOutbid them before time runs out!",
			lot.Name, lot.CurrentPrice,
		)
		if err := h.notifier.NotifyBidder(ctx, previous.ID, text); err != nil {
			h.logger.Warn("Failed to notify outbid bidder", "lot_id", lot.ID, "bidder_id", previous.ID, "error", err)
		}
	}()
}

func (h *Handler) serverError(c *gin.Context, op string, err error) {
	h.logger.Error("Request failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
}
