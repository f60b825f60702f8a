package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

const (
	// StreamName is the name of the restaurant activity stream.
	StreamName = "GRAVY"

	// SubjectPrefix is the prefix for all subjects.
	SubjectPrefix = "gravy"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the activity stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat transcripts and restaurant workflow events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// SessionToken maps a session key, usually an email, onto a subject-safe
// token.
func SessionToken(sessionKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sessionKey)).String()
}

// MessageSubject returns the subject for a transcript message.
func MessageSubject(sessionKey string, role model.Role) string {
	return fmt.Sprintf("%s.session.%s.msg.%s", SubjectPrefix, SessionToken(sessionKey), role)
}

// EventSubject returns the subject for an event.
func EventSubject(eventType model.EventType) string {
	return fmt.Sprintf("%s.event.%s", SubjectPrefix, eventType)
}

// TranscriptFilter returns the filter subject for all messages of a session.
func TranscriptFilter(sessionKey string) string {
	return fmt.Sprintf("%s.session.%s.msg.>", SubjectPrefix, SessionToken(sessionKey))
}

// PublishMessage publishes a transcript entry to JetStream.
func (m *StreamManager) PublishMessage(ctx context.Context, entry *model.TranscriptEntry) (uint64, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, MessageSubject(entry.SessionKey, entry.Role), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}
	return ack.Sequence, nil
}

// PublishEvent publishes an event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.Event) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, EventSubject(event.Type), data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	return ack.Sequence, nil
}

// Transcript reads a session's messages starting after a sequence.
func (m *StreamManager) Transcript(ctx context.Context, sessionKey string, afterSequence uint64, limit int) ([]model.TranscriptEntry, uint64, bool, error) {
	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: TranscriptFilter(sessionKey),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.client.JetStream().CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var entries []model.TranscriptEntry
	var lastSequence uint64
	for msg := range batch.Messages() {
		var entry model.TranscriptEntry
		if err := json.Unmarshal(msg.Data(), &entry); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			entry.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}
		entries = append(entries, entry)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return entries, lastSequence, len(entries) == limit, nil
}
