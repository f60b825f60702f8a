package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// MenuHandler serves the priced menu.
type MenuHandler struct {
	workflows *workflow.Service
	logger    *logger.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(wf *workflow.Service, log *logger.Logger) *MenuHandler {
	return &MenuHandler{workflows: wf, logger: logger.OrNop(log)}
}

// Menu handles GET /api/menu?customer_email=
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items, err := h.workflows.Menu(r.Context(), r.URL.Query().Get("customer_email"))
	if err != nil {
		h.logger.Error("menu unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "menu unavailable")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
