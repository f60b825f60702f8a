// Package model holds the restaurant domain types shared across packages.
package model

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a persisted booking.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "Pending Payment"
	BookingAdvancePending BookingStatus = "Advance Booking - Pending Payment"
	BookingConfirmed      BookingStatus = "Confirmed"
)

// Booking is a persisted reservation.
type Booking struct {
	ID          string        `json:"booking_id,omitempty"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	People      int           `json:"people"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Tables      []string      `json:"tables,omitempty"`
	TotalAmount int64         `json:"total_amount"`
	PaymentLink string        `json:"payment_link,omitempty"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TableNo renders the assigned tables the way staff read them.
func (b *Booking) TableNo() string {
	return strings.Join(b.Tables, ", ")
}

// BookingRequest carries the fields needed to allocate a booking.
type BookingRequest struct {
	Name   string `json:"name" validate:"required,min=2"`
	Email  string `json:"email" validate:"required,email"`
	People int    `json:"people" validate:"gt=0"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string `json:"time" validate:"required,clock"`
}

// Table is one physical table and its availability flag.
type Table struct {
	ID        string `json:"table"`
	Available bool   `json:"available"`
}

// StaffRequest is a cancellation or complaint awaiting staff review.
type StaffRequest struct {
	Name        string    `json:"customer_name"`
	Email       string    `json:"email"`
	TableNo     string    `json:"table_no"`
	Body        string    `json:"request"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// StatusUpdate is pushed by management when a staff request changes state.
type StatusUpdate struct {
	Email   string `json:"Email"`
	Name    string `json:"Customer_Name"`
	TableNo string `json:"Table_No"`
	Status  string `json:"Status"`
}

// User is a registered account.
type User struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
}
