// Package intent maps a customer utterance onto the closed set of
// restaurant intents.
package intent

import (
	"strings"
	"unicode"
)

// Intent is one of the closed set of conversation intents.
type Intent int

const (
	OrderFood Intent = iota
	BookTable
	CancelBooking
	CancelOrder
	Complaint
	MenuInfo
	PaymentMode
	Location
	GuideTable
	MeetManager
	GeneralChat
)

var labels = [...]string{
	OrderFood:     "order_food",
	BookTable:     "book_table",
	CancelBooking: "cancel_booking",
	CancelOrder:   "cancel_order",
	Complaint:     "complaint",
	MenuInfo:      "menu_info",
	PaymentMode:   "payment_mode",
	Location:      "location",
	GuideTable:    "guide_table",
	MeetManager:   "meet_manager",
	GeneralChat:   "general_chat",
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(labels) {
		return labels[GeneralChat]
	}
	return labels[i]
}

// All returns every intent in declaration order.
func All() []Intent {
	out := make([]Intent, len(labels))
	for i := range labels {
		out[i] = Intent(i)
	}
	return out
}

// Labels returns the wire labels in declaration order.
func Labels() []string {
	out := make([]string, len(labels))
	copy(out, labels[:])
	return out
}

// Parse returns the intent with exactly the given label.
func Parse(label string) (Intent, bool) {
	for i, l := range labels {
		if l == label {
			return Intent(i), true
		}
	}
	return GeneralChat, false
}

// Normalize lowercases raw model output, drops punctuation and joins words
// with underscores, so "Book-Table." becomes "book_table".
func Normalize(raw string) string {
	var sb strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sep = false
			sb.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return sb.String()
}
