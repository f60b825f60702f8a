package nats

import (
	"context"
	"strings"
	"testing"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

func TestSubjects(t *testing.T) {
	tok := SessionToken("asha@example.com")
	if strings.ContainsAny(tok, ".*> @") {
		t.Fatalf("token %q is not subject safe", tok)
	}
	if tok != SessionToken("asha@example.com") {
		t.Error("token is not stable")
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"message", MessageSubject("asha@example.com", model.RoleUser), "gravy.session." + tok + ".msg.user"},
		{"event", EventSubject(model.EventOrderPlaced), "gravy.event.order.placed"},
		{"filter", TranscriptFilter("asha@example.com"), "gravy.session." + tok + ".msg.>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNilBusIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(context.Background(), model.Event{Type: model.EventOrderPlaced})
	b.Record(context.Background(), model.TranscriptEntry{Role: model.RoleUser})
	if entries, _, _, err := b.Transcript(context.Background(), "k", 0, 10); err != nil || entries != nil {
		t.Errorf("Transcript() = %v, %v", entries, err)
	}
}
