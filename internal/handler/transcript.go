package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	natsclient "github.com/gravy-ai/restaurant-assistant/internal/nats"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// TranscriptHandler reads recorded chat transcripts back from the event
// stream.
type TranscriptHandler struct {
	bus    *natsclient.Bus
	logger *logger.Logger
}

// NewTranscriptHandler creates a new transcript handler.
func NewTranscriptHandler(bus *natsclient.Bus, log *logger.Logger) *TranscriptHandler {
	return &TranscriptHandler{bus: bus, logger: logger.OrNop(log)}
}

// Get handles GET /debug/transcript?email=&after=&limit=
func (h *TranscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if strings.TrimSpace(q.Get("email")) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "transcripts are disabled")
		return
	}
	key := session.Key(q.Get("email"))

	limit := 50
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	var after uint64
	if a := q.Get("after"); a != "" {
		if parsed, err := strconv.ParseUint(a, 10, 64); err == nil {
			after = parsed
		}
	}

	entries, last, more, err := h.bus.Transcript(r.Context(), key, after, limit)
	if err != nil {
		h.logger.Error("transcript unavailable", zap.String("session", key), zap.Error(err))
		writeError(w, http.StatusBadGateway, "transcript unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":       entries,
		"last_sequence": last,
		"has_more":      more,
	})
}
