package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starlots/internal/adapters/api"
	"starlots/internal/domain/bidding"
	"starlots/internal/domain/lots"
	"starlots/internal/testhelpers"
	"starlots/pkg/auth"
)

const adminID = int64(999)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type testAPI struct {
	router   *gin.Engine
	store    *testhelpers.MemStore
	notifier *testhelpers.RecordingNotifier
	signer   *auth.Signer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithPinger(t, stubPinger{})
}

func newTestAPIWithPinger(t *testing.T, db api.Pinger) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testhelpers.NewMemStore()
	notifier := &testhelpers.RecordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lotService := lots.NewService(store, store)
	bidService := bidding.NewService(store, store, store, store, 5*time.Minute)

	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	handler := api.NewHandler(lotService, bidService, notifier, nil, db, adminID, logger)
	return &testAPI{
		router:   api.NewRouter(handler, signer),
		store:    store,
		notifier: notifier,
		signer:   signer,
	}
}

func (a *testAPI) request(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := a.signer.Sign(userID, "user", "User")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodGet, "/health", nil, 0)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
	})

	t.Run("database down", func(t *testing.T) {
		a := newTestAPIWithPinger(t, stubPinger{err: errors.New("connection refused")})
		rec := a.request(t, http.MethodGet, "/health", nil, 0)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestListLots(t *testing.T) {
	a := newTestAPI(t)
	a.store.SeedLot(&lots.Lot{Name: "Open", ImageURL: "x", Status: lots.LotStatusActive, CreatedAt: time.Now()})
	soldAt := time.Now()
	a.store.SeedLot(&lots.Lot{Name: "Gone", ImageURL: "x", Status: lots.LotStatusSold, SoldAt: &soldAt, CreatedAt: time.Now()})

	rec := a.request(t, http.MethodGet, "/api/lots", nil, 0)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["active_lots"], 1)
	assert.Len(t, body["sold_lots"], 1)
}

func TestGetLot(t *testing.T) {
	a := newTestAPI(t)
	lotID := a.store.SeedLot(&lots.Lot{Name: "Teapot", ImageURL: "x", Status: lots.LotStatusActive, CreatedAt: time.Now()})

	t.Run("found", func(t *testing.T) {
		rec := a.request(t, http.MethodGet, "/api/lots/1", nil, 0)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		lot := body["lot"].(map[string]any)
		assert.Equal(t, float64(lotID), lot["id"])
		assert.Equal(t, "Teapot", lot["name"])
	})

	t.Run("not found", func(t *testing.T) {
		rec := a.request(t, http.MethodGet, "/api/lots/404", nil, 0)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := a.request(t, http.MethodGet, "/api/lots/teapot", nil, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPlaceBid(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodPost, "/api/bids", gin.H{"lot_id": 1}, 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepted bid", func(t *testing.T) {
		a := newTestAPI(t)
		lotID := a.store.SeedLot(&lots.Lot{Name: "Teapot", ImageURL: "x", AuctionDuration: 60, Status: lots.LotStatusActive, CreatedAt: time.Now()})

		rec := a.request(t, http.MethodPost, "/api/bids", gin.H{"lot_id": lotID}, 100)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		lot := body["lot"].(map[string]any)
		assert.Equal(t, float64(1), lot["current_price"])

		stored, err := a.store.GetLotByID(context.Background(), lotID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.CurrentPrice)
		require.NotNil(t, stored.LastBidder)
		assert.Equal(t, int64(100), stored.LastBidder.ID)
	})

	t.Run("unknown lot", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodPost, "/api/bids", gin.H{"lot_id": 404}, 100)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("closed auction conflicts", func(t *testing.T) {
		a := newTestAPI(t)
		expired := time.Now().Add(-time.Minute)
		lotID := a.store.SeedLot(&lots.Lot{Name: "Teapot", ImageURL: "x", AuctionDuration: 60, Status: lots.LotStatusActive, Deadline: &expired, CreatedAt: time.Now()})

		rec := a.request(t, http.MethodPost, "/api/bids", gin.H{"lot_id": lotID}, 100)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("outbid notification goes to the previous leader", func(t *testing.T) {
		a := newTestAPI(t)
		deadline := time.Now().Add(time.Hour)
		lotID := a.store.SeedLot(&lots.Lot{
			Name: "Teapot", ImageURL: "x", AuctionDuration: 60,
			Status: lots.LotStatusActive, CurrentPrice: 1,
			Deadline: &deadline, LastBidder: &lots.Bidder{ID: 100, Username: "alice"},
			CreatedAt: time.Now(),
		})

		rec := a.request(t, http.MethodPost, "/api/bids", gin.H{"lot_id": lotID}, 200)
		require.Equal(t, http.StatusOK, rec.Code)

		// Dispatched on its own goroutine after the response
		require.Eventually(t, func() bool {
			return len(a.notifier.Sent()) == 1
		}, 2*time.Second, 10*time.Millisecond)
		sent := a.notifier.Sent()
		assert.Equal(t, int64(100), sent[0].BidderID)
		assert.Contains(t, sent[0].Text, "Teapot")
	})
}

func TestCreateLot(t *testing.T) {
	t.Run("admin creates a lot", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodPost, "/admin/lots", gin.H{
			"name":             "Teapot",
			"image_url":        "https://example.com/t.jpg",
			"auction_duration": 30,
		}, adminID)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.NotZero(t, body["lot_id"])
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodPost, "/admin/lots", gin.H{
			"name":      "Teapot",
			"image_url": "https://example.com/t.jpg",
		}, 100)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		a := newTestAPI(t)
		rec := a.request(t, http.MethodPost, "/admin/lots", gin.H{"name": "Teapot"}, adminID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminListLots(t *testing.T) {
	a := newTestAPI(t)
	a.store.SeedLot(&lots.Lot{Name: "Open", ImageURL: "x", Status: lots.LotStatusActive, CreatedAt: time.Now()})

	t.Run("admin sees listings", func(t *testing.T) {
		rec := a.request(t, http.MethodGet, "/admin/lots", nil, adminID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody(t, rec)["active_lots"], 1)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		rec := a.request(t, http.MethodGet, "/admin/lots", nil, 100)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
