package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmy name is ([a-z ]+)`),
		regexp.MustCompile(`(?i)\bthis is ([a-z ]+)`),
		regexp.MustCompile(`(?i)\bi am ([a-z ]+)`),
		regexp.MustCompile(`(?i)\bi'm ([a-z ]+)`),
	}
	nameTail      = regexp.MustCompile(`(?i)\s+(and\b|email\b|booking\b|for\b|with\b).*$`)
	emailPattern  = regexp.MustCompile(`[\w.+-]+@[\w-]+(\.[\w-]+)+`)
	peoplePattern = regexp.MustCompile(`(?i)(\d+)\s*(people|persons?|guests?|pax)`)
	datePattern   = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	timePattern   = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*(?:am|pm)?)`)
	todayPattern  = regexp.MustCompile(`(?i)\btoday\b|\btonight\b`)
	tmrwPattern   = regexp.MustCompile(`(?i)\btomorrow\b`)

	titleCaser = cases.Title(language.English)
)

// ExtractBooking pulls booking fields out of free text. Fallbacks fill the
// name and email when the text does not carry them. The returned list
// names the fields still missing.
func (s *Service) ExtractBooking(text string, fallback model.User) (model.BookingRequest, []string) {
	var req model.BookingRequest

	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(nameTail.ReplaceAllString(m[1], ""))
			if name != "" {
				req.Name = titleCaser.String(name)
				break
			}
		}
	}
	if req.Name == "" {
		req.Name = strings.TrimSpace(fallback.Name)
	}

	if m := emailPattern.FindString(text); m != "" {
		req.Email = strings.ToLower(m)
	} else if !session.IsGuest(fallback.Email) {
		req.Email = session.Key(fallback.Email)
	}

	if m := peoplePattern.FindStringSubmatch(text); m != nil {
		req.People, _ = strconv.Atoi(m[1])
	}

	now := s.clock.Now()
	switch {
	case datePattern.MatchString(text):
		req.Date = datePattern.FindString(text)
	case tmrwPattern.MatchString(text):
		req.Date = now.AddDate(0, 0, 1).Format(model.DateLayout)
	case todayPattern.MatchString(text):
		req.Date = now.Format(model.DateLayout)
	}

	if m := timePattern.FindStringSubmatch(text); m != nil {
		req.Time = strings.Join(strings.Fields(m[1]), " ")
	}

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" {
		missing = append(missing, "email address")
	}
	if req.People <= 0 {
		missing = append(missing, "number of people")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	return req, missing
}

// BookFromText runs the conversational booking path.
func (s *Service) BookFromText(ctx context.Context, sess *session.Session, text string) Reply {
	req, missing := s.ExtractBooking(text, model.User{Name: sess.Name, Email: sess.Email})
	if len(missing) > 0 {
		return Reply{Text: fmt.Sprintf("Please share your %s to complete your booking.", strings.Join(missing, ", "))}
	}
	if err := s.validate.Struct(req); err != nil {
		return Reply{Text: "⚠️ Please check your booking details: " + validationMessage(err) + "."}
	}
	return s.allocate(ctx, sess, req)
}

// BookDirect runs the structured booking path. Validation failures wrap
// ErrInvalid.
func (s *Service) BookDirect(ctx context.Context, sess *session.Session, req model.BookingRequest) (Reply, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Time = strings.TrimSpace(req.Time)
	if err := s.validate.Struct(req); err != nil {
		return Reply{}, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}
	return s.allocate(ctx, sess, req), nil
}

// TablesNeeded is the number of tables a party occupies.
func (s *Service) TablesNeeded(people int) int {
	c := s.settings.TableCapacity
	return (people + c - 1) / c
}

func (s *Service) allocate(ctx context.Context, sess *session.Session, req model.BookingRequest) Reply {
	day, ok := ParseBookingDate(req.Date)
	if !ok {
		return Reply{Text: "⚠️ Please share the date as YYYY-MM-DD."}
	}
	today := s.clock.Now().Format(model.DateLayout)
	switch date := day.Format(model.DateLayout); {
	case date < today:
		metrics.RecordBooking("past", "rejected")
		return Reply{Text: "⚠️ That date has already passed. Please choose today or a future date."}
	case date > today:
		return s.allocateAdvance(ctx, sess, req)
	}
	return s.allocateToday(ctx, sess, req)
}

func (s *Service) allocateToday(ctx context.Context, sess *session.Session, req model.BookingRequest) Reply {
	rows, err := s.store.Fetch(ctx, store.SheetTables)
	if err != nil {
		s.logger.Error("table snapshot unavailable", zap.Error(err))
		metrics.RecordBooking("today", "error")
		return Reply{Text: "⚠️ I couldn't check table availability right now. Please try again in a moment."}
	}

	var available []model.Table
	for _, t := range store.DecodeTables(rows) {
		if t.Available {
			available = append(available, t)
		}
	}

	needed := s.TablesNeeded(req.People)
	switch {
	case len(available) == 0:
		metrics.RecordBooking("today", "full")
		return Reply{Text: "😔 Sorry, all tables are booked right now."}
	case len(available) < needed:
		metrics.RecordBooking("today", "shortfall")
		return Reply{Text: fmt.Sprintf("😔 Sorry, we only have %d tables available right now.", len(available))}
	}

	assigned := make([]string, 0, needed)
	for _, t := range available[:needed] {
		if err := s.store.UpdateByKey(ctx, store.SheetTables, "Table", t.ID, store.Row{"Availability": "No"}); err != nil {
			s.logger.Error("table assignment failed", zap.String("table", t.ID), zap.Error(err))
			s.releaseTables(ctx, assigned)
			metrics.RecordBooking("today", "error")
			return Reply{Text: bookingFailedText}
		}
		assigned = append(assigned, t.ID)
	}

	b := model.Booking{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		People:      req.People,
		Date:        req.Date,
		Time:        req.Time,
		Tables:      assigned,
		TotalAmount: int64(needed) * s.settings.TablePrice,
		Status:      model.BookingPendingPayment,
		CreatedAt:   s.clock.Now(),
	}
	b.PaymentLink = s.paymentLink(ctx, checkout.Request{
		Amount:      b.TotalAmount,
		Description: fmt.Sprintf("Table booking for %d at %s", b.People, s.settings.RestaurantName),
		Email:       b.Email,
		Metadata: map[string]string{
			checkout.MetaBookingID: b.ID,
			checkout.MetaKind:      "booking",
			checkout.MetaTableNo:   b.TableNo(),
		},
	})

	if err := s.store.Append(ctx, store.SheetBookings, store.EncodeBooking(b)); err != nil {
		s.logger.Error("booking record failed", zap.String("booking_id", b.ID), zap.Error(err))
		s.releaseTables(ctx, assigned)
		metrics.RecordBooking("today", "error")
		return Reply{Text: bookingFailedText}
	}

	sess.Tables = assigned
	sess.TableNo = b.TableNo()
	sess.PaymentLink = b.PaymentLink
	metrics.RecordBooking("today", "created")
	s.publish(ctx, model.EventBookingCreated, b.Email, map[string]any{
		"booking_id": b.ID,
		"tables":     assigned,
		"amount":     b.TotalAmount,
	})
	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("tables", b.TableNo()),
		zap.Int("people", b.People),
	)

	return Reply{
		Text: fmt.Sprintf("✅ Booking created for %d people today at %s.\n🪑 Assigned table(s): %s\n💰 Total: ₹%d\n💳 Please complete your payment:\n%s",
			b.People, b.Time, b.TableNo(), b.TotalAmount, b.PaymentLink),
		PaymentLink: b.PaymentLink,
		Booking:     &b,
	}
}

const bookingFailedText = "⚠️ Sorry, an issue occurred while saving your booking and no table was held. Please try again in a moment."

// releaseTables marks tables available again after a failed booking. It
// runs even if the request context is already cancelled.
func (s *Service) releaseTables(ctx context.Context, tables []string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range tables {
		if err := s.store.UpdateByKey(ctx, store.SheetTables, "Table", id, store.Row{"Availability": "Yes"}); err != nil {
			s.logger.Error("table release failed, needs manual fix", zap.String("table", id), zap.Error(err))
		}
	}
}

func (s *Service) allocateAdvance(ctx context.Context, sess *session.Session, req model.BookingRequest) Reply {
	b := model.Booking{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		People:      req.People,
		Date:        req.Date,
		Time:        req.Time,
		TotalAmount: int64(s.TablesNeeded(req.People)) * s.settings.TablePrice,
		Status:      model.BookingAdvancePending,
		CreatedAt:   s.clock.Now(),
	}
	b.PaymentLink = s.paymentLink(ctx, checkout.Request{
		Amount:      b.TotalAmount,
		Description: fmt.Sprintf("Advance booking for %d on %s at %s", b.People, b.Date, s.settings.RestaurantName),
		Email:       b.Email,
		Metadata: map[string]string{
			checkout.MetaBookingID: b.ID,
			checkout.MetaKind:      "advance_booking",
		},
	})

	if err := s.store.Append(ctx, store.SheetAdvanceBookings, store.EncodeBooking(b)); err != nil {
		s.logger.Error("advance booking record failed", zap.String("booking_id", b.ID), zap.Error(err))
		metrics.RecordBooking("advance", "error")
		return Reply{Text: "⚠️ Sorry, an issue occurred while saving your reservation. Please try again in a moment."}
	}

	sess.PaymentLink = b.PaymentLink
	metrics.RecordBooking("advance", "created")
	s.publish(ctx, model.EventAdvanceBookingCreated, b.Email, map[string]any{
		"booking_id": b.ID,
		"date":       b.Date,
		"amount":     b.TotalAmount,
	})

	return Reply{
		Text: fmt.Sprintf("📅 Your advance reservation for %s at %s is recorded.\n💰 Total: ₹%d\n💳 Please complete payment to confirm your booking:\n%s\n🪑 Table number will be assigned on the arrival day.",
			b.Date, b.Time, b.TotalAmount, b.PaymentLink),
		PaymentLink: b.PaymentLink,
		Booking:     &b,
	}
}
