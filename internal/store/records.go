package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

// DecodeTables maps table rows. Rows without an identifier are skipped.
func DecodeTables(rows []Row) []model.Table {
	out := make([]model.Table, 0, len(rows))
	for _, r := range rows {
		id := r.Get("Table")
		if id == "" {
			continue
		}
		out = append(out, model.Table{
			ID:        id,
			Available: strings.EqualFold(r.Get("Availability"), "yes"),
		})
	}
	return out
}

// DecodeMenu maps menu rows. Rows without a dish name or with an
// unparseable price are skipped.
func DecodeMenu(rows []Row) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(rows))
	for _, r := range rows {
		dish := r.Get("Dish")
		if dish == "" {
			continue
		}
		price, ok := ParseAmount(r.Get("Price"))
		if !ok {
			continue
		}
		prep, _ := strconv.Atoi(r.Get("Time"))
		category := r.Get("Category")
		if category == "" {
			category = "Main Course"
		}
		out = append(out, model.MenuItem{
			Dish:        dish,
			Category:    category,
			BasePrice:   price,
			Price:       price,
			PrepMinutes: prep,
		})
	}
	return out
}

// EncodeOrderLine renders an order line row. Price keeps the display form
// staff read; Unit_Price and Line_Total carry the numbers.
func EncodeOrderLine(l model.OrderLine) Row {
	return Row{
		"Dish":          l.Dish,
		"Category":      l.Category,
		"Quantity":      strconv.Itoa(l.Quantity),
		"Price":         l.Display(),
		"Unit_Price":    strconv.FormatInt(l.UnitPrice, 10),
		"Line_Total":    strconv.FormatInt(l.Total(), 10),
		"Toppings":      l.Toppings,
		"Ordered_At":    l.OrderedAt.In(model.IST).Format(model.StampLayout),
		"Customer_ID":   l.CustomerID,
		"Customer_Name": l.CustomerName,
		"Table_No":      l.TableNo,
	}
}

// DecodeOrderLines maps order rows that name a dish, skipping payment and
// completion records that share the sheet.
func DecodeOrderLines(rows []Row) []model.OrderLine {
	out := make([]model.OrderLine, 0, len(rows))
	for _, r := range rows {
		dish := r.Get("Dish")
		if dish == "" {
			continue
		}
		qty, _ := strconv.Atoi(r.Get("Quantity"))
		unit, _ := ParseAmount(r.Get("Unit_Price"))
		at, _ := time.ParseInLocation(model.StampLayout, r.Get("Ordered_At"), model.IST)
		out = append(out, model.OrderLine{
			Dish:         dish,
			Category:     r.Get("Category"),
			Quantity:     qty,
			UnitPrice:    unit,
			Toppings:     r.Get("Toppings"),
			OrderedAt:    at,
			CustomerID:   strings.ToLower(r.Get("Customer_ID")),
			CustomerName: r.Get("Customer_Name"),
			TableNo:      r.Get("Table_No"),
		})
	}
	return out
}

// EncodeBooking renders a booking row.
func EncodeBooking(b model.Booking) Row {
	assign := "no"
	if len(b.Tables) > 0 {
		assign = "yes"
	}
	tablesAssigned := len(b.Tables)
	return Row{
		"Booking_ID":      b.ID,
		"Name":            b.Name,
		"Email":           b.Email,
		"People":          strconv.Itoa(b.People),
		"Date":            b.Date,
		"Time":            b.Time,
		"Table_No":        b.TableNo(),
		"Tables_Assigned": strconv.Itoa(tablesAssigned),
		"Total_Amount":    FormatAmount(b.TotalAmount),
		"Payment_Link":    b.PaymentLink,
		"Status":          string(b.Status),
		"Created_At":      b.CreatedAt.In(model.IST).Format(model.StampLayout),
		"Assign_Table":    assign,
	}
}

// DecodeBooking maps a booking row.
func DecodeBooking(r Row) model.Booking {
	people, _ := strconv.Atoi(r.Get("People"))
	total, _ := ParseAmount(r.Get("Total_Amount"))
	created, _ := time.ParseInLocation(model.StampLayout, r.Get("Created_At"), model.IST)
	return model.Booking{
		ID:          r.Get("Booking_ID"),
		Name:        r.Get("Name"),
		Email:       strings.ToLower(r.Get("Email")),
		People:      people,
		Date:        r.Get("Date"),
		Time:        r.Get("Time"),
		Tables:      SplitTables(r.Get("Table_No")),
		TotalAmount: total,
		PaymentLink: r.Get("Payment_Link"),
		Status:      model.BookingStatus(r.Get("Status")),
		CreatedAt:   created,
	}
}

// SplitTables parses a "T1, T2" table list.
func SplitTables(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FormatAmount renders whole rupees.
func FormatAmount(v int64) string {
	return "₹" + strconv.FormatInt(v, 10)
}

// ParseAmount reads a rupee amount such as "₹250", "250" or "249.5",
// rounding to whole rupees.
func ParseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "₹"), ",", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return int64(f + 0.5), true
}
