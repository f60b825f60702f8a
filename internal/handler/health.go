package handler

import (
	"net/http"

	natsclient "github.com/gravy-ai/restaurant-assistant/internal/nats"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	name       string
	natsClient *natsclient.Client
}

// NewHealthHandler creates a new health handler. natsClient is nil when
// the event stream is disabled.
func NewHealthHandler(restaurantName string, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		name:       restaurantName,
		natsClient: natsClient,
	}
}

// Home handles GET /
func (h *HealthHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "🍛 " + h.name + " Backend is running successfully!",
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
