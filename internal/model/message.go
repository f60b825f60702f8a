package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one exchanged chat message held in a session.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ChatResponse is returned for every chat turn.
type ChatResponse struct {
	Response            string      `json:"response"`
	Intent              string      `json:"intent,omitempty"`
	PaymentLink         string      `json:"payment_link,omitempty"`
	AwaitingPaymentMode bool        `json:"awaiting_payment_mode,omitempty"`
	OrderData           []OrderLine `json:"order_data,omitempty"`
	ComplaintLogged     bool        `json:"complaint_logged,omitempty"`
	Notifications       []string    `json:"notifications,omitempty"`
}

// Notification is a user-facing message queued outside a chat turn.
type Notification struct {
	Email   string    `json:"email"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
