package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/pricing"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

var (
	itemSplit   = regexp.MustCompile(`(?i),|\band\b`)
	itemPattern = regexp.MustCompile(`(?i)(\d+)\s+([a-z\s]+?)(?:\s+with\s+(.*))?$`)
	orderWord   = regexp.MustCompile(`(?i)\border\b`)
	itemFiller  = regexp.MustCompile(`(?i)\s+(please|thanks|thank you)$`)
)

// ParsedItem is one "<qty> <dish>[ with <toppings>]" fragment.
type ParsedItem struct {
	Quantity int
	Dish     string
	Toppings string
}

// ParseItems splits an order utterance into items. Fragments that do not
// start with a quantity are ignored.
func ParseItems(text string) []ParsedItem {
	var out []ParsedItem
	for _, part := range itemSplit.Split(text, -1) {
		part = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(part), ".!?"))
		part = itemFiller.ReplaceAllString(part, "")
		m := itemPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty <= 0 {
			continue
		}
		toppings := strings.TrimSpace(m[3])
		if toppings == "" {
			toppings = "None"
		}
		out = append(out, ParsedItem{
			Quantity: qty,
			Dish:     strings.Join(strings.Fields(m[2]), " "),
			Toppings: toppings,
		})
	}
	return out
}

// OrderFromText runs the conversational ordering path.
func (s *Service) OrderFromText(ctx context.Context, sess *session.Session, text string) Reply {
	if session.IsGuest(sess.Email) {
		return Reply{Text: "⚠️ You don’t have an active table booking yet. Please book a table first."}
	}
	booking := s.ActiveBooking(ctx, sess.Email)
	if booking == nil {
		return Reply{Text: fmt.Sprintf("⚠️ No active booking found for %s. Please book a table first.", sess.Email)}
	}

	items := ParseItems(text)
	if len(items) == 0 {
		if orderWord.MatchString(text) {
			return Reply{Text: "🍽️ Sure! What would you like to order today? Try '2 Dal Tadka with extra butter'."}
		}
		return Reply{Text: "⚠️ Please mention the dish and quantity like '2 Dal Tadka, 3 Paneer Butter Masala'."}
	}

	menu, err := s.menuIndex(ctx)
	if err != nil {
		s.logger.Error("menu unavailable", zap.Error(err))
		return Reply{Text: "⚠️ Sorry, I couldn't load our menu right now. Please try again in a moment."}
	}

	book := s.pricing.Quote(ctx, sess.Email)
	table := tableFor(booking, sess)
	name := firstNonEmpty(sess.Name, booking.Name)

	var msgs []string
	var accepted []model.OrderLine
	for _, it := range items {
		dish, ok := menu[strings.ToLower(it.Dish)]
		if !ok {
			metrics.RecordOrderLine("rejected")
			msgs = append(msgs, fmt.Sprintf("❌ Sorry, '%s' isn’t on our menu.", it.Dish))
			continue
		}
		line, err := s.appendLine(ctx, book, dish, it.Quantity, it.Toppings, sess.Email, name, table)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("⚠️ I couldn't save %s right now. Please try again.", dish.Dish))
			continue
		}
		accepted = append(accepted, line)
		msgs = append(msgs, fmt.Sprintf("✅ Got it! %d × **%s** (with %s) added to your order. 🍛", line.Quantity, line.Dish, line.Toppings))
	}

	reply := Reply{Text: strings.Join(msgs, "\n")}
	if len(accepted) == 0 {
		return reply
	}

	s.addToPendingOrder(sess, accepted, table)
	s.publish(ctx, model.EventOrderPlaced, sess.Email, map[string]any{
		"table_no": table,
		"lines":    len(accepted),
		"total":    model.OrderTotal(accepted),
	})

	if mode, ok := ParsePaymentMode(text); ok {
		pay := s.settle(ctx, sess, booking, mode)
		reply.Text += "\n\n" + pay.Text
		reply.PaymentLink = pay.PaymentLink
		reply.Order = sess.LastOrder
		return reply
	}

	reply.Text += fmt.Sprintf("\n\nServed soon at your table #%s. 💬 Would you like to pay **Online** or **Cash**?", table)
	reply.AwaitingPaymentMode = true
	reply.Order = sess.LastOrder
	return reply
}

// PlaceOrder runs the structured ordering path. Client prices are ignored;
// every line is priced from the menu. Validation failures wrap ErrInvalid.
func (s *Service) PlaceOrder(ctx context.Context, sess *session.Session, req model.OrderRequest) (Reply, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return Reply{}, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}

	booking := s.ActiveBooking(ctx, req.Email)
	if booking == nil {
		return Reply{Text: fmt.Sprintf("⚠️ No active booking found for %s (%s). Please book a table first.", req.Name, req.Email)}, nil
	}

	menu, err := s.menuIndex(ctx)
	if err != nil {
		s.logger.Error("menu unavailable", zap.Error(err))
		return Reply{Text: "⚠️ Sorry, I couldn't load our menu right now. Please try again in a moment."}, nil
	}

	book := s.pricing.Quote(ctx, req.Email)
	table := tableFor(booking, sess)

	var accepted []model.OrderLine
	var rejected []string
	for _, it := range req.Items {
		dish, ok := menu[strings.ToLower(strings.TrimSpace(it.Name))]
		if !ok {
			metrics.RecordOrderLine("rejected")
			rejected = append(rejected, it.Name)
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		line, err := s.appendLine(ctx, book, dish, qty, "None", req.Email, req.Name, table)
		if err != nil {
			rejected = append(rejected, it.Name)
			continue
		}
		accepted = append(accepted, line)
	}

	if len(accepted) == 0 {
		return Reply{Text: "❌ None of the requested dishes could be ordered: " + strings.Join(rejected, ", ")}, nil
	}

	s.addToPendingOrder(sess, accepted, table)
	s.publish(ctx, model.EventOrderPlaced, req.Email, map[string]any{
		"table_no": table,
		"lines":    len(accepted),
		"total":    model.OrderTotal(accepted),
	})

	text := fmt.Sprintf("✅ Order placed for table #%s. Total so far: ₹%d. 💬 Would you like to pay **Online** or **Cash**?",
		table, sess.LastOrderTotal())
	if len(rejected) > 0 {
		text = fmt.Sprintf("❌ Not on our menu: %s\n%s", strings.Join(rejected, ", "), text)
	}
	return Reply{
		Text:                text,
		AwaitingPaymentMode: true,
		Order:               sess.LastOrder,
	}, nil
}

func (s *Service) menuIndex(ctx context.Context) (map[string]model.MenuItem, error) {
	rows, err := s.store.Fetch(ctx, store.SheetMenu)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]model.MenuItem)
	for _, it := range store.DecodeMenu(rows) {
		key := strings.ToLower(it.Dish)
		if _, dup := idx[key]; !dup {
			idx[key] = it
		}
	}
	return idx, nil
}

func (s *Service) appendLine(ctx context.Context, book *pricing.PriceBook, dish model.MenuItem, qty int, toppings, customerID, customerName, table string) (model.OrderLine, error) {
	unit, _ := book.Unit(dish.Dish, dish.BasePrice)
	line := model.OrderLine{
		Dish:         dish.Dish,
		Category:     dish.Category,
		Quantity:     qty,
		UnitPrice:    unit,
		Toppings:     toppings,
		OrderedAt:    s.clock.Now(),
		CustomerID:   customerID,
		CustomerName: customerName,
		TableNo:      table,
	}
	if err := s.store.Append(ctx, store.SheetOrders, store.EncodeOrderLine(line)); err != nil {
		s.logger.Error("order line not saved", zap.String("dish", dish.Dish), zap.Error(err))
		metrics.RecordOrderLine("failed")
		return model.OrderLine{}, err
	}
	metrics.RecordOrderLine("accepted")
	return line, nil
}

// addToPendingOrder accumulates lines while a payment mode is still
// pending; otherwise it starts a new pending order.
func (s *Service) addToPendingOrder(sess *session.Session, lines []model.OrderLine, table string) {
	if !sess.AwaitingPaymentMode {
		sess.LastOrder = nil
	}
	sess.LastOrder = append(sess.LastOrder, lines...)
	sess.AwaitingPaymentMode = true
	sess.TableNo = table
}

func tableFor(b *model.Booking, sess *session.Session) string {
	if b != nil && len(b.Tables) > 0 {
		return b.TableNo()
	}
	return sess.TableNo
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
