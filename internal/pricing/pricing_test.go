package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
)

var now = time.Date(2025, 3, 10, 19, 0, 0, 0, model.IST)

func tables(total, unavailable int) []model.Table {
	out := make([]model.Table, total)
	for i := range out {
		out[i] = model.Table{ID: "T", Available: i >= unavailable}
	}
	return out
}

func order(dish string, ago time.Duration) model.OrderLine {
	return model.OrderLine{Dish: dish, Quantity: 1, OrderedAt: now.Add(-ago)}
}

func TestDemandMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		tables []model.Table
		want   float64
	}{
		{"empty", nil, 1.0},
		{"exactlyEightyPercent", tables(10, 8), 1.20},
		{"justBelow", tables(100000, 79999), 1.0},
		{"allBooked", tables(4, 4), 1.20},
		{"quiet", tables(5, 1), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DemandMultiplier(tt.tables); got != tt.want {
				t.Errorf("DemandMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomerMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		history []model.OrderLine
		want    float64
	}{
		{"none", nil, 1.0},
		{"twoRecent", []model.OrderLine{order("a", time.Hour), order("b", 2*time.Hour)}, 1.0},
		{"threeRecent", []model.OrderLine{order("a", time.Hour), order("b", 48*time.Hour), order("c", 20*24*time.Hour)}, 1.05},
		{"oneTooOld", []model.OrderLine{order("a", time.Hour), order("b", 2*time.Hour), order("c", 31*24*time.Hour)}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CustomerMultiplier(tt.history, now); got != tt.want {
				t.Errorf("CustomerMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFavoriteIngredient(t *testing.T) {
	tests := []struct {
		name   string
		dishes []string
		want   string
	}{
		{"stopwordsIgnored", []string{"Paneer Butter Masala", "Paneer Tikka"}, "paneer"},
		{"firstToMaxWins", []string{"Dal Tadka", "Jeera Rice"}, "dal"},
		{"onlyStopwords", []string{"Butter Masala"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var orders []model.OrderLine
			for _, d := range tt.dishes {
				orders = append(orders, model.OrderLine{Dish: d})
			}
			if got := FavoriteIngredient(orders); got != tt.want {
				t.Errorf("FavoriteIngredient() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecentUsesNewestThree(t *testing.T) {
	history := []model.OrderLine{
		order("Old Dish", 10*24*time.Hour),
		order("Dal Tadka", time.Hour),
		order("Dal Makhani", 2*time.Hour),
		order("Jeera Rice", 3*time.Hour),
	}
	got := Recent(history, 3)
	if len(got) != 3 || got[0].Dish != "Dal Tadka" || got[2].Dish != "Jeera Rice" {
		t.Errorf("Recent() = %+v", got)
	}
}

func TestPersonalize(t *testing.T) {
	menu := []model.MenuItem{
		{Dish: "Jeera Rice", BasePrice: 150},
		{Dish: "Paneer Tikka", BasePrice: 250},
		{Dish: "Cheap Bite", BasePrice: 3},
	}

	t.Run("shortHistorySurgeOnly", func(t *testing.T) {
		got := Personalize(menu, []model.OrderLine{order("Paneer Tikka", time.Hour)}, 1.20, now)
		if got[0].Dish != "Jeera Rice" || got[0].Price != 180 || got[0].Personalized {
			t.Errorf("got[0] = %+v", got[0])
		}
		if got[1].Price != 300 {
			t.Errorf("got[1].Price = %d, want 300", got[1].Price)
		}
	})

	t.Run("matchesFirst", func(t *testing.T) {
		history := []model.OrderLine{order("Paneer Butter Masala", time.Hour), order("Paneer Tikka", 2*time.Hour)}
		got := Personalize(menu, history, 1.0, now)

		if got[0].Dish != "Paneer Tikka" || !got[0].Personalized || got[0].Price != 255 {
			t.Errorf("got[0] = %+v, want Paneer Tikka at 255", got[0])
		}
		if got[1].Dish != "Jeera Rice" || got[1].Price != 145 {
			t.Errorf("got[1] = %+v, want Jeera Rice at 145", got[1])
		}
		if got[2].Price != 0 {
			t.Errorf("discount must clamp at zero, got %d", got[2].Price)
		}
	})

	t.Run("frequentIncrement", func(t *testing.T) {
		history := []model.OrderLine{
			order("Paneer Tikka", time.Hour),
			order("Paneer Tikka", 2*time.Hour),
			order("Paneer Tikka", 3*time.Hour),
		}
		got := Personalize(menu, history, 1.0, now)
		// 250 × 1.05 + 10
		if got[0].Price != 273 {
			t.Errorf("got[0].Price = %d, want 273", got[0].Price)
		}
	})
}

func TestUnitPriceInvariant(t *testing.T) {
	b := NewPriceBook(tables(10, 9), nil, now)
	for _, base := range []int64{0, 1, 99, 200, 375} {
		unit, _ := b.Unit("Any", base)
		if unit < 0 {
			t.Fatalf("unit price %d < 0", unit)
		}
		line := model.OrderLine{UnitPrice: unit, Quantity: 3}
		if line.Total() != unit*3 {
			t.Errorf("Total() = %d, want %d", line.Total(), unit*3)
		}
	}
}

func TestEngineQuoteIsStable(t *testing.T) {
	g := store.NewMemoryGateway().
		Seed(store.SheetTables,
			store.Row{"Table": "T1", "Availability": "No"},
			store.Row{"Table": "T2", "Availability": "Yes"},
		).
		Seed(store.SheetOrders,
			store.Row{"Dish": "Dal Tadka", "Customer_ID": "A@B.com", "Ordered_At": "2025-03-09 20:00", "Quantity": "1"},
			store.Row{"Dish": "Dal Makhani", "Customer_ID": "a@b.com", "Ordered_At": "2025-03-08 20:00", "Quantity": "1"},
			store.Row{"Customer_ID": "a@b.com", "Payment_Mode": "Cash"},
		)

	e := NewEngine(g, func() time.Time { return now }, nil)
	menu := []model.MenuItem{{Dish: "Dal Tadka", BasePrice: 200}, {Dish: "Jeera Rice", BasePrice: 150}}

	first := e.Quote(context.Background(), "a@b.com").Menu(menu)
	second := e.Quote(context.Background(), "a@b.com").Menu(menu)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("quote not stable: %+v vs %+v", first[i], second[i])
		}
	}
	if first[0].Dish != "Dal Tadka" || first[0].Price != 205 {
		t.Errorf("first[0] = %+v, want Dal Tadka at 205", first[0])
	}
}
