package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// sendTimeout bounds a single sendMessage attempt. Notification is
// best-effort: there are no retries.
const sendTimeout = 10 * time.Second

// TelegramNotifier implements bidding.Notifier over the Telegram Bot API.
//
// With no bot token configured it degrades to logging the messages and
// reporting success, which keeps local development free of credentials.
type TelegramNotifier struct {
	token       string
	adminChatID int64
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(token string, adminChatID int64, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:       token,
		adminChatID: adminChatID,
		baseURL:     defaultAPIBaseURL,
		client:      &http.Client{Timeout: sendTimeout},
		logger:      logger,
	}
}

// NotifyBidder sends a direct message to a bidder
func (n *TelegramNotifier) NotifyBidder(ctx context.Context, bidderID int64, text string) error {
	return n.sendMessage(ctx, bidderID, text)
}

// NotifyAdmin sends a message to the configured administrator
func (n *TelegramNotifier) NotifyAdmin(ctx context.Context, text string) error {
	if n.adminChatID == 0 {
		n.logger.Info("Admin notification (no admin chat configured)", "text", text)
		return nil
	}
	return n.sendMessage(ctx, n.adminChatID, text)
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID int64, text string) error {
	if n.token == "" {
		n.logger.Info("Notification (no bot token configured)", "chat_id", chatID, "text", text)
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	// Drain the body so the connection can be reused
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return nil
}
