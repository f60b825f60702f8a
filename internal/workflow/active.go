package workflow

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
)

// Active window around a booking's start time.
const (
	ActiveBefore = 30 * time.Minute
	ActiveAfter  = 2 * time.Hour
)

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3PM",
	"3 PM",
}

// ParseBookingDate reads a booking date as an IST calendar day. Timestamps
// carrying a zone are converted to IST first.
func ParseBookingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(model.DateLayout, s, model.IST); err == nil {
		return d, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.In(model.IST)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, model.IST), true
	}
	return time.Time{}, false
}

// ParseBookingClock reads a booking time of day as hours and minutes in IST.
func ParseBookingClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.In(model.IST)
		return t.Hour(), t.Minute(), true
	}
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// BookingStart combines a booking's date and time into an IST instant.
func BookingStart(date, clock string) (time.Time, bool) {
	d, ok := ParseBookingDate(date)
	if !ok {
		return time.Time{}, false
	}
	h, m, ok := ParseBookingClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, model.IST), true
}

// IsActiveAt reports whether a booking starting at start is active at now.
func IsActiveAt(start, now time.Time) bool {
	return !now.Before(start.Add(-ActiveBefore)) && !now.After(start.Add(ActiveAfter))
}

// ActiveBooking returns the customer's booking for today whose window
// contains the current time, the latest one if several qualify. It returns
// nil when there is none or the store cannot be read.
func (s *Service) ActiveBooking(ctx context.Context, email string) *model.Booking {
	bookings, err := s.bookingsFor(ctx, email)
	if err != nil {
		s.logger.Warn("bookings unavailable", zap.String("email", email), zap.Error(err))
		return nil
	}

	now := s.clock.Now()
	today := now.Format(model.DateLayout)

	var best *model.Booking
	var bestStart time.Time
	for i := range bookings {
		b := &bookings[i]
		start, ok := BookingStart(b.Date, b.Time)
		if !ok {
			continue
		}
		if start.Format(model.DateLayout) != today || !IsActiveAt(start, now) {
			continue
		}
		if best == nil || !start.Before(bestStart) {
			best, bestStart = b, start
		}
	}
	return best
}

// LatestBooking returns the customer's most recently recorded booking, or
// nil.
func (s *Service) LatestBooking(ctx context.Context, email string) *model.Booking {
	bookings, err := s.bookingsFor(ctx, email)
	if err != nil {
		s.logger.Warn("bookings unavailable", zap.String("email", email), zap.Error(err))
		return nil
	}
	if len(bookings) == 0 {
		return nil
	}
	return &bookings[len(bookings)-1]
}

// bookingsFor returns booking rows for email in store order. Payment
// completion records sharing the sheet carry no date and are skipped.
func (s *Service) bookingsFor(ctx context.Context, email string) ([]model.Booking, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	rows, err := s.store.Fetch(ctx, store.SheetBookings)
	if err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, r := range rows {
		b := store.DecodeBooking(r)
		if b.Email != email || b.Date == "" {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Bookings returns every booking recorded for email, oldest first.
func (s *Service) Bookings(ctx context.Context, email string) ([]model.Booking, error) {
	return s.bookingsFor(ctx, email)
}
