// Package pricing computes demand surge and per-customer price adjustments.
//
// A unit price is base × demand × customer ± personalization, rounded to
// whole rupees and never negative. The same PriceBook is used for the menu
// preview, free-text orders and structured orders.
package pricing

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

const (
	// SurgeThreshold is the unavailable-table fraction that triggers surge.
	SurgeThreshold = 0.80
	// SurgeMultiplier applies at or above SurgeThreshold.
	SurgeMultiplier = 1.20
	// FrequentMultiplier applies to frequent customers.
	FrequentMultiplier = 1.05

	// FrequentOrders within FrequentWindow marks a customer as frequent.
	FrequentOrders = 3
	FrequentWindow = 30 * 24 * time.Hour

	recentOrders      = 3
	minHistory        = 2
	favoriteIncrement = 5
	frequentIncrement = 10
	othersDiscount    = 5
)

var stopwords = map[string]bool{
	"butter": true,
	"masala": true,
	"with":   true,
	"extra":  true,
	"and":    true,
}

// DemandMultiplier returns SurgeMultiplier when at least SurgeThreshold of
// tables are unavailable, else 1.
func DemandMultiplier(tables []model.Table) float64 {
	if len(tables) == 0 {
		return 1.0
	}
	unavailable := 0
	for _, t := range tables {
		if !t.Available {
			unavailable++
		}
	}
	// Compare in integers so exactly 80% is not lost to float error.
	if unavailable*100 >= len(tables)*80 {
		return SurgeMultiplier
	}
	return 1.0
}

// IsFrequent reports whether history holds FrequentOrders or more orders
// placed in the FrequentWindow before now.
func IsFrequent(history []model.OrderLine, now time.Time) bool {
	since := now.Add(-FrequentWindow)
	n := 0
	for _, o := range history {
		if o.OrderedAt.IsZero() || o.OrderedAt.Before(since) || o.OrderedAt.After(now) {
			continue
		}
		n++
	}
	return n >= FrequentOrders
}

// CustomerMultiplier returns FrequentMultiplier for frequent customers, else 1.
func CustomerMultiplier(history []model.OrderLine, now time.Time) float64 {
	if IsFrequent(history, now) {
		return FrequentMultiplier
	}
	return 1.0
}

// Recent returns up to n orders, most recent first.
func Recent(history []model.OrderLine, n int) []model.OrderLine {
	sorted := make([]model.OrderLine, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderedAt.After(sorted[j].OrderedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FavoriteIngredient returns the most frequent non-stopword token across
// the dish names of orders. The first token to reach the top count wins.
func FavoriteIngredient(orders []model.OrderLine) string {
	counts := make(map[string]int)
	var order []string
	for _, o := range orders {
		for _, tok := range strings.Fields(strings.ToLower(o.Dish)) {
			if stopwords[tok] {
				continue
			}
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	best, bestN := "", 0
	for _, tok := range order {
		if counts[tok] > bestN {
			best, bestN = tok, counts[tok]
		}
	}
	return best
}

// PriceBook holds the multipliers and preferences for one customer at one
// point in time.
type PriceBook struct {
	Demand       float64
	Customer     float64
	Frequent     bool
	Favorite     string
	personalized bool
}

// NewPriceBook derives a price book from a table snapshot and the
// customer's order history.
func NewPriceBook(tables []model.Table, history []model.OrderLine, now time.Time) *PriceBook {
	b := &PriceBook{
		Demand:   DemandMultiplier(tables),
		Customer: CustomerMultiplier(history, now),
		Frequent: IsFrequent(history, now),
	}
	if len(history) >= minHistory {
		b.personalized = true
		b.Favorite = FavoriteIngredient(Recent(history, recentOrders))
	}
	return b
}

// Personalized reports whether favourite-based adjustments apply.
func (b *PriceBook) Personalized() bool {
	return b.personalized
}

// Surged applies the demand and customer multipliers to base.
func (b *PriceBook) Surged(base int64) float64 {
	return float64(base) * b.Demand * b.Customer
}

// Unit quotes the unit price of dish and whether it was favourite-boosted.
func (b *PriceBook) Unit(dish string, base int64) (int64, bool) {
	surged := b.Surged(base)
	if !b.personalized {
		return clamp(surged), false
	}
	if b.Favorite != "" && strings.Contains(strings.ToLower(dish), b.Favorite) {
		inc := float64(favoriteIncrement)
		if b.Frequent {
			inc = frequentIncrement
		}
		return clamp(surged + inc), true
	}
	return clamp(surged - othersDiscount), false
}

// Menu prices every item. For personalized books, favourite matches come
// first; relative order is otherwise preserved.
func (b *PriceBook) Menu(items []model.MenuItem) []model.MenuItem {
	matches := make([]model.MenuItem, 0, len(items))
	others := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		price, fav := b.Unit(it.Dish, it.BasePrice)
		it.Price = price
		it.Personalized = fav
		it.SurgeApplied = b.Demand > 1
		if fav {
			matches = append(matches, it)
		} else {
			others = append(others, it)
		}
	}
	return append(matches, others...)
}

// Personalize prices menu for a customer with history under the given
// demand multiplier.
func Personalize(menu []model.MenuItem, history []model.OrderLine, demand float64, now time.Time) []model.MenuItem {
	b := NewPriceBook(nil, history, now)
	b.Demand = demand
	return b.Menu(menu)
}

func clamp(v float64) int64 {
	if v <= 0 {
		return 0
	}
	return int64(math.Round(v))
}
