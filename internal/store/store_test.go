package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

func TestRowGet(t *testing.T) {
	r := Row{"Dish  ": " Dal Tadka ", "customer_id": "a@b.com"}

	tests := []struct {
		key  string
		want string
	}{
		{"Dish", "Dal Tadka"},
		{"Customer_ID", "a@b.com"},
		{"Missing", ""},
	}
	for _, tt := range tests {
		if got := r.Get(tt.key); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMemoryUpdateByKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryGateway().Seed(SheetTables,
		Row{"Table": "T1", "Availability": "Yes"},
		Row{"Table": "T2", "Availability": "Yes"},
	)

	if err := m.UpdateByKey(ctx, SheetTables, "Table", "t2", Row{"Availability": "No"}); err != nil {
		t.Fatalf("UpdateByKey() error = %v", err)
	}
	rows := m.Rows(SheetTables)
	if rows[1]["Availability"] != "No" || rows[0]["Availability"] != "Yes" {
		t.Errorf("rows = %v", rows)
	}

	err := m.UpdateByKey(ctx, SheetTables, "Table", "T9", Row{"Availability": "No"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateByKey(T9) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRowsAreCopies(t *testing.T) {
	m := NewMemoryGateway().Seed(SheetMenu, Row{"Dish": "Dal Tadka"})
	rows := m.Rows(SheetMenu)
	rows[0]["Dish"] = "changed"

	if got := m.Rows(SheetMenu)[0]["Dish"]; got != "Dal Tadka" {
		t.Errorf("stored row mutated: %q", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"₹250", 250, true},
		{" 199.6 ", 200, true},
		{"1,200", 1200, true},
		{"", 0, false},
		{"free", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseAmount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOrderLineRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 19, 30, 0, 0, model.IST)
	line := model.OrderLine{
		Dish: "Dal Tadka", Category: "Main Course", Quantity: 2, UnitPrice: 210,
		Toppings: "None", OrderedAt: at, CustomerID: "a@b.com", TableNo: "T1",
	}

	row := EncodeOrderLine(line)
	if row["Price"] != "₹210 × 2 = ₹420" {
		t.Errorf("Price = %q", row["Price"])
	}

	got := DecodeOrderLines([]Row{row, {"Customer_ID": "a@b.com", "Payment_Mode": "Cash"}})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Total() != 420 || !got[0].OrderedAt.Equal(at) {
		t.Errorf("decoded = %+v", got[0])
	}
}

func TestDecodeMenuSkipsBadRows(t *testing.T) {
	items := DecodeMenu([]Row{
		{"Dish": "Dal Tadka", "Category": "Main Course", "Price": "₹200", "Time": "15"},
		{"Dish": "", "Price": "100"},
		{"Dish": "Mystery", "Price": "ask"},
	})
	if len(items) != 1 || items[0].BasePrice != 200 || items[0].PrepMinutes != 15 {
		t.Errorf("items = %+v", items)
	}
}

func TestSheetsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"range":"table!A1:B3","majorDimension":"ROWS","values":[["Table","Availability"],["T1","Yes"],["T2","No"]]}`)
	}))
	defer srv.Close()

	g, err := NewSheetsGateway(context.Background(), "sheet-id", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewSheetsGateway() error = %v", err)
	}

	rows, err := g.Fetch(context.Background(), SheetTables)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	tables := DecodeTables(rows)
	if len(tables) != 2 || !tables[0].Available || tables[1].Available {
		t.Errorf("tables = %+v", tables)
	}
}
