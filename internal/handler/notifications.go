package handler

import (
	"net/http"
	"strings"

	"github.com/gravy-ai/restaurant-assistant/internal/assistant"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

// NotificationHandler serves the notification feed and the management
// status callback.
type NotificationHandler struct {
	notifier *assistant.Notifier
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(n *assistant.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: n}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.notifier.Recent(),
	})
}

// CancellationUpdate handles POST /cancellation_update
func (h *NotificationHandler) CancellationUpdate(w http.ResponseWriter, r *http.Request) {
	var u model.StatusUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Missing email or status field",
		})
		return
	}
	if strings.TrimSpace(u.Name) == "" {
		u.Name = "Guest"
	}
	if strings.TrimSpace(u.TableNo) == "" {
		u.TableNo = "N/A"
	}

	h.notifier.Update(r.Context(), u)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Notification sent and stored for " + u.Email,
	})
}
