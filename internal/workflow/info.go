package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/session"
)

// MenuPreviewSize is how many dishes a chat menu reply lists.
const MenuPreviewSize = 21

const menuIntro = "🍽️ We serve **purely Indian vegetarian cuisine**, focusing on rich gravies and classic dishes."

// MenuInfo renders the customer's priced menu preview.
func (s *Service) MenuInfo(ctx context.Context, sess *session.Session) Reply {
	customer := ""
	if !session.IsGuest(sess.Email) {
		customer = sess.Email
	}
	items, err := s.Menu(ctx, customer)
	if err != nil {
		s.logger.Warn("menu unavailable", zap.Error(err))
	}
	if len(items) == 0 {
		return Reply{Text: menuIntro + "\n\nWould you like to see our full menu?"}
	}
	if len(items) > MenuPreviewSize {
		items = items[:MenuPreviewSize]
	}

	var sb strings.Builder
	sb.WriteString(menuIntro)
	sb.WriteString("\n\nHere’s your menu (curated for you):\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s — ₹%d", it.Dish, it.Price)
		if it.Personalized {
			sb.WriteString(" ⭐")
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\nWould you like to place an order?")
	return Reply{Text: sb.String()}
}

// Location describes where the restaurant is.
func (s *Service) Location() Reply {
	st := s.settings
	return Reply{Text: fmt.Sprintf("📍 We’re located at **%s**, %s.\n\n🕒 Open Hours: %s\n📞 Contact: %s\n📬 Google Maps: [View on Maps](%s)",
		st.RestaurantName, st.Address, st.Hours, st.Phone, st.MapsURL)}
}

// GuideTable tells the customer where their booked table is.
func (s *Service) GuideTable(ctx context.Context, sess *session.Session) Reply {
	b := s.LatestBooking(ctx, sess.Email)
	if b == nil {
		return Reply{Text: "I couldn't find a booking linked to your account/email. Can you please provide your name or email used for the booking?"}
	}

	date := b.Date
	if d, ok := ParseBookingDate(b.Date); ok {
		date = d.Format("02 Jan 2006")
	}
	table := tableFor(b, sess)
	if table == "" {
		table = "assigned on arrival"
	}
	return Reply{
		Text: fmt.Sprintf("📌 Your booking is confirmed!\nDate: %s\nTable Number: %s\n\nPlease head to this table when you arrive. Enjoy your meal! 🍽️",
			date, table),
		Booking: b,
	}
}
