package handler

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/assistant"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// BookingHandler handles direct bookings and booking lookups.
type BookingHandler struct {
	assistant *assistant.Assistant
	workflows *workflow.Service
	logger    *logger.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(a *assistant.Assistant, wf *workflow.Service, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		assistant: a,
		workflows: wf,
		logger:    logger.OrNop(log),
	}
}

type bookingResponse struct {
	Response    string         `json:"response"`
	PaymentLink string         `json:"payment_link,omitempty"`
	Booking     *model.Booking `json:"booking,omitempty"`
}

// Book handles POST /book-table
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.assistant.BookDirect(r.Context(), req)
	if errors.Is(err, workflow.ErrInvalid) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("direct booking failed", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to book table")
		return
	}

	writeJSON(w, http.StatusOK, bookingResponse{
		Response:    reply.Text,
		PaymentLink: reply.PaymentLink,
		Booking:     reply.Booking,
	})
}

// Debug handles GET /debug/bookings?email=
func (h *BookingHandler) Debug(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	bookings, err := h.workflows.Bookings(r.Context(), email)
	if err != nil {
		h.logger.Error("bookings unavailable", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusBadGateway, "bookings unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email_checked":  email,
		"total_bookings": len(bookings),
		"bookings":       bookings,
		"active_booking": h.workflows.ActiveBooking(r.Context(), email),
	})
}
