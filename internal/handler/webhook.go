package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

const maxWebhookBytes = 65536

// WebhookHandler receives checkout provider callbacks.
type WebhookHandler struct {
	workflows *workflow.Service
	secret    string
	logger    *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(wf *workflow.Service, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		workflows: wf,
		secret:    secret,
		logger:    logger.OrNop(log).Named("webhook"),
	}
}

// Stripe handles POST /stripe/webhook
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	completion, err := checkout.ParseCompletion(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if errors.Is(err, checkout.ErrIgnoredEvent) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid signature"})
		return
	}

	if err := h.workflows.CompletePayment(r.Context(), completion); err != nil {
		h.logger.Error("payment completion not recorded",
			zap.String("session_id", completion.SessionID),
			zap.String("email", completion.Email),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
