package pricing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// Engine builds price books from the live store.
type Engine struct {
	store  store.Gateway
	clock  model.Clock
	logger *logger.Logger
}

// NewEngine creates a pricing engine.
func NewEngine(g store.Gateway, clock model.Clock, log *logger.Logger) *Engine {
	return &Engine{store: g, clock: clock, logger: logger.OrNop(log).Named("pricing")}
}

// Quote returns the price book for customerID, which may be empty for an
// anonymous customer. Store failures degrade to neutral multipliers.
func (e *Engine) Quote(ctx context.Context, customerID string) *PriceBook {
	var tables []model.Table
	if rows, err := e.store.Fetch(ctx, store.SheetTables); err != nil {
		e.logger.Warn("table snapshot unavailable, pricing without surge", zap.Error(err))
	} else {
		tables = store.DecodeTables(rows)
	}

	return NewPriceBook(tables, e.History(ctx, customerID), e.clock.Now())
}

// History returns the customer's order lines.
func (e *Engine) History(ctx context.Context, customerID string) []model.OrderLine {
	customerID = strings.ToLower(strings.TrimSpace(customerID))
	if customerID == "" {
		return nil
	}

	rows, err := e.store.Fetch(ctx, store.SheetOrders)
	if err != nil {
		e.logger.Warn("order history unavailable, pricing without personalization",
			zap.String("customer", customerID),
			zap.Error(err),
		)
		return nil
	}

	var out []model.OrderLine
	for _, l := range store.DecodeOrderLines(rows) {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out
}
