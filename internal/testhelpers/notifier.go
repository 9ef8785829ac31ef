package testhelpers

import (
	"context"
	"sync"
)

// Notification is one recorded dispatch attempt
type Notification struct {
	BidderID int64 // 0 for admin notifications
	Text     string
}

// RecordingNotifier implements bidding.Notifier and records every dispatch
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	Err  error // returned from every call when set
}

// NotifyBidder records a bidder notification
func (n *RecordingNotifier) NotifyBidder(ctx context.Context, bidderID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{BidderID: bidderID, Text: text})
	return n.Err
}

// NotifyAdmin records an admin notification
func (n *RecordingNotifier) NotifyAdmin(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{Text: text})
	return n.Err
}

// Sent returns a copy of the recorded notifications
func (n *RecordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
