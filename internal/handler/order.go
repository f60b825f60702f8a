package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/assistant"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// OrderHandler handles structured ordering and payment selection.
type OrderHandler struct {
	assistant *assistant.Assistant
	logger    *logger.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(a *assistant.Assistant, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		assistant: a,
		logger:    logger.OrNop(log),
	}
}

type orderResponse struct {
	Response            string            `json:"response"`
	OrderData           []model.OrderLine `json:"order_data,omitempty"`
	Total               int64             `json:"total"`
	AwaitingPaymentMode bool              `json:"awaiting_payment_mode"`
}

type paymentResponse struct {
	Response   string `json:"response"`
	PaymentURL string `json:"payment_url,omitempty"`
	Status     string `json:"status"`
}

// Order handles POST /order
func (h *OrderHandler) Order(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.assistant.PlaceOrder(r.Context(), req)
	if errors.Is(err, workflow.ErrInvalid) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("order failed", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong while placing your order.")
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Response:            reply.Text,
		OrderData:           reply.Order,
		Total:               model.OrderTotal(reply.Order),
		AwaitingPaymentMode: reply.AwaitingPaymentMode,
	})
}

// Payment handles POST /payment
func (h *OrderHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.assistant.SelectPayment(r.Context(), req)
	switch {
	case errors.Is(err, assistant.ErrSessionRequired):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, workflow.ErrInvalidPaymentMode):
		writeError(w, http.StatusBadRequest, "Payment mode must be 'Online' or 'Cash'.")
		return
	case err != nil:
		h.logger.Error("payment selection failed", zap.String("session", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong while updating payment mode.")
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		Response:   reply.Text,
		PaymentURL: reply.PaymentLink,
		Status:     "success",
	})
}
