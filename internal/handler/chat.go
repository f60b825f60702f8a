// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strings"

	"github.com/gravy-ai/restaurant-assistant/internal/assistant"
	"github.com/gravy-ai/restaurant-assistant/internal/middleware"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// ChatHandler handles the conversational endpoint.
type ChatHandler struct {
	assistant *assistant.Assistant
	logger    *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(a *assistant.Assistant, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: a,
		logger:    logger.OrNop(log),
	}
}

// Chat handles POST /chatbot
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateChatMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		req.Email = middleware.GetEmail(r.Context())
	}

	writeJSON(w, http.StatusOK, h.assistant.Handle(r.Context(), req))
}
