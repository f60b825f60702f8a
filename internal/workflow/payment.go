package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

// Payment modes.
const (
	ModeOnline = "online"
	ModeCash   = "cash"
)

var (
	onlineWords = regexp.MustCompile(`(?i)\b(online|upi|card)\b`)
	cashWords   = regexp.MustCompile(`(?i)\bcash\b`)
)

// ParsePaymentMode finds a payment mode named in text. Online wins when
// both appear.
func ParsePaymentMode(text string) (string, bool) {
	switch {
	case onlineWords.MatchString(text):
		return ModeOnline, true
	case cashWords.MatchString(text):
		return ModeCash, true
	}
	return "", false
}

// Pay settles the session's pending order with the mode named in text.
func (s *Service) Pay(ctx context.Context, sess *session.Session, text string) Reply {
	mode, ok := ParsePaymentMode(text)
	if !ok {
		return Reply{
			Text:                "💬 Would you like to pay **Online** or **Cash**?",
			AwaitingPaymentMode: sess.AwaitingPaymentMode,
		}
	}
	booking := s.paymentBooking(ctx, sess)
	if booking == nil {
		return Reply{Text: "⚠️ Please book a table first before selecting a payment mode."}
	}
	return s.settle(ctx, sess, booking, mode)
}

// SelectPaymentMode settles the pending order with an explicit mode.
func (s *Service) SelectPaymentMode(ctx context.Context, sess *session.Session, mode string) (Reply, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != ModeOnline && mode != ModeCash {
		return Reply{}, ErrInvalidPaymentMode
	}
	booking := s.paymentBooking(ctx, sess)
	if booking == nil {
		return Reply{Text: "⚠️ Please book a table first before selecting a payment mode."}, nil
	}
	return s.settle(ctx, sess, booking, mode), nil
}

func (s *Service) paymentBooking(ctx context.Context, sess *session.Session) *model.Booking {
	if session.IsGuest(sess.Email) {
		return nil
	}
	return s.ActiveBooking(ctx, sess.Email)
}

func (s *Service) settle(ctx context.Context, sess *session.Session, booking *model.Booking, mode string) Reply {
	total := sess.LastOrderTotal()
	if total <= 0 {
		total = s.settings.DefaultOrderTotal
	}
	table := tableFor(booking, sess)

	var reply Reply
	switch mode {
	case ModeOnline:
		link := s.paymentLink(ctx, checkout.Request{
			Amount:      total,
			Description: fmt.Sprintf("Food order for table #%s at %s", table, s.settings.RestaurantName),
			Email:       sess.Email,
			Metadata: map[string]string{
				checkout.MetaKind:    "order",
				checkout.MetaTableNo: table,
			},
		})
		reply = Reply{
			Text:        fmt.Sprintf("💳 Your total is ₹%d. Please pay online using this link:\n%s", total, link),
			PaymentLink: link,
		}
		sess.PaymentLink = link
	default:
		reply = Reply{Text: fmt.Sprintf("💰 Payment mode set to **Cash** for total ₹%d. Please pay at the counter after your meal.", total)}
	}

	label := strings.ToUpper(mode[:1]) + mode[1:]
	if err := s.store.Append(ctx, store.SheetOrders, store.Row{
		"Customer_ID":  sess.Email,
		"Table_No":     table,
		"Payment_Mode": label,
		"Order_Total":  store.FormatAmount(total),
		"Updated_At":   s.stamp(),
	}); err != nil {
		s.logger.Error("payment mode not recorded", zap.String("mode", mode), zap.Error(err))
	}

	sess.AwaitingPaymentMode = false
	sess.PaymentMode = mode
	metrics.RecordPayment(mode)
	s.publish(ctx, model.EventPaymentSelected, sess.Email, map[string]any{
		"mode":     mode,
		"total":    total,
		"table_no": table,
	})
	reply.Order = sess.LastOrder
	return reply
}

// CompletePayment records a finished checkout against the booking and
// order sheets and confirms the booking it paid for.
func (s *Service) CompletePayment(ctx context.Context, c *checkout.Completion) error {
	if c == nil || !strings.EqualFold(c.Status, "completed") {
		return nil
	}

	record := store.Row{
		"Email":          c.Email,
		"Payment_Status": "Completed",
		"Amount_Paid":    store.FormatAmount(c.Amount),
		"Updated_At":     s.stamp(),
	}
	var errs []error
	for _, sheet := range []string{store.SheetBookings, store.SheetOrders} {
		if err := s.store.Append(ctx, sheet, record.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("record completion in %s: %w", sheet, err))
		}
	}

	if id := c.Metadata[checkout.MetaBookingID]; id != "" {
		sheet := store.SheetBookings
		if c.Metadata[checkout.MetaKind] == "advance_booking" {
			sheet = store.SheetAdvanceBookings
		}
		err := s.store.UpdateByKey(ctx, sheet, "Booking_ID", id, store.Row{"Status": string(model.BookingConfirmed)})
		if err != nil {
			errs = append(errs, fmt.Errorf("confirm booking %s: %w", id, err))
		} else {
			s.publish(ctx, model.EventBookingConfirmed, c.Email, map[string]any{"booking_id": id})
		}
	}

	s.publish(ctx, model.EventPaymentCompleted, c.Email, map[string]any{
		"amount":     c.Amount,
		"session_id": c.SessionID,
	})
	s.logger.Info("payment completed", zap.String("email", c.Email), zap.Int64("amount", c.Amount))
	return errors.Join(errs...)
}
