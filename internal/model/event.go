package model

import (
	"time"
)

// EventType represents the type of a domain event.
type EventType string

const (
	EventBookingCreated        EventType = "booking.created"
	EventAdvanceBookingCreated EventType = "booking.advance_created"
	EventBookingConfirmed      EventType = "booking.confirmed"
	EventOrderPlaced           EventType = "order.placed"
	EventPaymentSelected       EventType = "payment.selected"
	EventPaymentCompleted      EventType = "payment.completed"
	EventCancellationRequested EventType = "cancellation.requested"
	EventComplaintLogged       EventType = "complaint.logged"
	EventManagerRequested      EventType = "manager.requested"
	EventNotificationQueued    EventType = "notification.queued"
)

// Event is a domain event published to the event stream.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	SessionKey string         `json:"session_key,omitempty"`
	Email      string         `json:"email,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Sequence   uint64         `json:"sequence,omitempty"`
}

// TranscriptEntry is a chat message published to the event stream.
type TranscriptEntry struct {
	SessionKey string    `json:"session_key"`
	Intent     string    `json:"intent,omitempty"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Sequence   uint64    `json:"sequence,omitempty"`
}
