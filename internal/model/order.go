package model

import (
	"fmt"
	"time"
)

// MenuItem is a dish with its base and quoted price in whole rupees.
type MenuItem struct {
	Dish         string `json:"Dish"`
	Category     string `json:"Category"`
	BasePrice    int64  `json:"BasePrice"`
	Price        int64  `json:"Price"`
	SurgeApplied bool   `json:"SurgeApplied"`
	Personalized bool   `json:"Personalized"`
	PrepMinutes  int    `json:"Time,omitempty"`
}

// OrderLine is one ordered dish. UnitPrice and Quantity are the source of
// truth; the display string is derived from them.
type OrderLine struct {
	Dish         string    `json:"dish"`
	Category     string    `json:"category"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
	Toppings     string    `json:"toppings"`
	OrderedAt    time.Time `json:"ordered_at"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	TableNo      string    `json:"table_no"`
}

// Total is unit price times quantity.
func (l OrderLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Display renders the price the way it is shown to customers and staff.
func (l OrderLine) Display() string {
	return fmt.Sprintf("₹%d × %d = ₹%d", l.UnitPrice, l.Quantity, l.Total())
}

// OrderTotal sums line totals.
func OrderTotal(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Total()
	}
	return total
}

// OrderItem is a line of a structured order request.
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderRequest is the structured ordering payload. Client prices are
// ignored; lines are priced from the menu.
type OrderRequest struct {
	SessionID string      `json:"session_id"`
	Name      string      `json:"name" validate:"required"`
	Email     string      `json:"email" validate:"required,email"`
	Items     []OrderItem `json:"items" validate:"required,min=1,dive"`
}

// PaymentRequest selects a payment mode for a session's pending order.
type PaymentRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	PaymentMode string `json:"payment_mode" validate:"required"`
}
