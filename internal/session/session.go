// Package session keeps per-customer conversational state between chat turns.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

const (
	// GuestKey is used when a turn arrives without an email.
	GuestKey = "guest@example.com"
	// GuestName is the display name assumed for anonymous turns.
	GuestName = "Guest User"

	maxMessages = 50
)

// ErrNotFound is returned by Get when no live session exists.
var ErrNotFound = errors.New("session: not found")

// Session is the mutable state of one conversation.
type Session struct {
	Key                 string               `json:"key"`
	Email               string               `json:"email,omitempty"`
	Name                string               `json:"name,omitempty"`
	Messages            []model.Message      `json:"messages,omitempty"`
	LastIntent          string               `json:"last_intent,omitempty"`
	LastOrder           []model.OrderLine    `json:"last_order,omitempty"`
	AwaitingPaymentMode bool                 `json:"awaiting_payment_mode,omitempty"`
	PaymentMode         string               `json:"payment_mode,omitempty"`
	Tables              []string             `json:"tables,omitempty"`
	TableNo             string               `json:"table_no,omitempty"`
	PaymentLink         string               `json:"payment_link,omitempty"`
	Notifications       []model.Notification `json:"notifications,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// New creates an empty session for key.
func New(key string) *Session {
	return &Session{Key: key}
}

// Key normalises an inbound email into a session key.
func Key(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return GuestKey
	}
	return email
}

// IsGuest reports whether email is absent or the guest placeholder.
func IsGuest(email string) bool {
	return Key(email) == GuestKey
}

// LastOrderTotal sums the pending order's line totals.
func (s *Session) LastOrderTotal() int64 {
	return model.OrderTotal(s.LastOrder)
}

// AppendMessage records a message, keeping the most recent maxMessages.
func (s *Session) AppendMessage(role model.Role, text string, at time.Time) {
	s.Messages = append(s.Messages, model.Message{Role: role, Text: text, At: at})
	if len(s.Messages) > maxMessages {
		s.Messages = append([]model.Message(nil), s.Messages[len(s.Messages)-maxMessages:]...)
	}
}

// History returns the last n messages.
func (s *Session) History(n int) []model.Message {
	if n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Notify queues a notification for the next turn.
func (s *Session) Notify(n model.Notification) {
	s.Notifications = append(s.Notifications, n)
}

// DrainNotifications returns and clears queued notifications.
func (s *Session) DrainNotifications() []model.Notification {
	out := s.Notifications
	s.Notifications = nil
	return out
}

// Clone returns a copy that shares no slices with s.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]model.Message(nil), s.Messages...)
	c.LastOrder = append([]model.OrderLine(nil), s.LastOrder...)
	c.Tables = append([]string(nil), s.Tables...)
	c.Notifications = append([]model.Notification(nil), s.Notifications...)
	return &c
}

// Store persists sessions between turns.
type Store interface {
	// Load returns the session for key, creating it on first use.
	Load(ctx context.Context, key string) (*Session, error)
	// Get returns the session for key or ErrNotFound.
	Get(ctx context.Context, key string) (*Session, error)
	// Save writes s back and refreshes its expiry.
	Save(ctx context.Context, s *Session) error
}
