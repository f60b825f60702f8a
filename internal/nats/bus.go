package nats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

const publishTimeout = 2 * time.Second

// Bus publishes workflow events and chat transcripts. A nil *Bus drops
// everything, which is how the service runs with NATS disabled.
type Bus struct {
	streams *StreamManager
	logger  *logger.Logger
}

// NewBus creates a bus over streams.
func NewBus(streams *StreamManager, log *logger.Logger) *Bus {
	return &Bus{streams: streams, logger: logger.OrNop(log).Named("bus")}
}

// Publish sends an event. Failures are logged and counted, never returned.
func (b *Bus) Publish(ctx context.Context, e model.Event) {
	if b == nil || b.streams == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := b.streams.PublishEvent(ctx, &e); err != nil {
		metrics.RecordEvent(string(e.Type), "error")
		b.logger.Warn("event not published", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}
	metrics.RecordEvent(string(e.Type), "ok")
}

// Record appends a transcript entry.
func (b *Bus) Record(ctx context.Context, entry model.TranscriptEntry) {
	if b == nil || b.streams == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := b.streams.PublishMessage(ctx, &entry); err != nil {
		metrics.RecordEvent("transcript", "error")
		b.logger.Warn("transcript not published", zap.String("role", string(entry.Role)), zap.Error(err))
		return
	}
	metrics.RecordEvent("transcript", "ok")
}

// Transcript returns recorded messages for a session.
func (b *Bus) Transcript(ctx context.Context, sessionKey string, after uint64, limit int) ([]model.TranscriptEntry, uint64, bool, error) {
	if b == nil || b.streams == nil {
		return nil, 0, false, nil
	}
	return b.streams.Transcript(ctx, sessionKey, after, limit)
}
