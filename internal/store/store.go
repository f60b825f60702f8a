// Package store is the row-oriented gateway to the spreadsheet that acts as
// the restaurant's system of record.
package store

import (
	"context"
	"errors"
	"strings"
)

// Sheet names.
const (
	SheetTables          = "table"
	SheetMenu            = "menu"
	SheetOrders          = "orders"
	SheetBookings        = "bookings"
	SheetAdvanceBookings = "advance_booking"
	SheetCancellations   = "cancellations"
	SheetComplaints      = "Complaints"
	SheetManager         = "manager"
	SheetUsers           = "users"
)

var (
	// ErrService is returned when the backing service fails or answers non-2xx.
	ErrService = errors.New("store: service error")
	// ErrNotFound is returned when an update-by-key matches no row.
	ErrNotFound = errors.New("store: row not found")
)

// Row is one spreadsheet row keyed by column header.
type Row map[string]string

// Get returns the value for key. Headers in the sheet often carry stray
// whitespace or differ in case, so matching falls back to a trimmed,
// case-insensitive comparison.
func (r Row) Get(key string) string {
	if v, ok := r[key]; ok {
		return strings.TrimSpace(v)
	}
	want := strings.ToLower(strings.TrimSpace(key))
	for k, v := range r {
		if strings.ToLower(strings.TrimSpace(k)) == want {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Gateway is the data store capability the workflows depend on.
type Gateway interface {
	// Fetch returns all rows of sheet in sheet order.
	Fetch(ctx context.Context, sheet string) ([]Row, error)
	// Append adds row to the end of sheet.
	Append(ctx context.Context, sheet string, row Row) error
	// UpdateByKey sets fields on the first row whose keyColumn equals keyValue.
	UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields Row) error
}

func sameKey(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
