package assistant

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

const (
	feedCap    = 50
	feedRecent = 20
)

// Notification sources.
const (
	SourceCallback = "callback"
	SourcePoller   = "poller"
)

// Notifier queues staff decisions for customers. Every notification lands
// in a bounded feed; it is also queued on the customer's session when one
// is live, to be shown on their next chat turn.
type Notifier struct {
	mu   sync.Mutex
	feed []model.Notification

	sessions session.Store
	locks    *session.Locker
	events   workflow.Publisher
	clock    model.Clock
	logger   *logger.Logger
}

// NewNotifier creates a notifier. locks should be the Locker the
// Assistant uses so a queued notification never races a chat turn.
func NewNotifier(sessions session.Store, locks *session.Locker, events workflow.Publisher, clock model.Clock, log *logger.Logger) *Notifier {
	if locks == nil {
		locks = session.NewLocker()
	}
	return &Notifier{
		sessions: sessions,
		locks:    locks,
		events:   events,
		clock:    clock,
		logger:   logger.OrNop(log).Named("notifier"),
	}
}

// Notify records message for email. It reports whether a live session
// received it.
func (n *Notifier) Notify(ctx context.Context, email, message, source string) bool {
	key := session.Key(email)
	note := model.Notification{Email: key, Message: message, At: n.clock.Now()}

	n.mu.Lock()
	n.feed = append(n.feed, note)
	if len(n.feed) > feedCap {
		n.feed = append([]model.Notification(nil), n.feed[len(n.feed)-feedCap:]...)
	}
	n.mu.Unlock()

	delivered := n.deliver(ctx, key, note)
	metrics.RecordNotification(source, delivered)
	if n.events != nil {
		n.events.Publish(ctx, model.Event{
			ID:        uuid.NewString(),
			Type:      model.EventNotificationQueued,
			Email:     key,
			Metadata:  map[string]any{"source": source, "delivered": delivered},
			CreatedAt: note.At,
		})
	}
	return delivered
}

func (n *Notifier) deliver(ctx context.Context, key string, note model.Notification) bool {
	if n.sessions == nil || session.IsGuest(key) {
		return false
	}
	unlock, err := n.locks.Acquire(ctx, key)
	if err != nil {
		n.logger.Warn("session lock unavailable", zap.String("session", key), zap.Error(err))
		return false
	}
	defer unlock()

	sess, err := n.sessions.Get(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return false
	}
	if err != nil {
		n.logger.Warn("session lookup failed", zap.String("session", key), zap.Error(err))
		return false
	}
	sess.Notify(note)
	if err := n.sessions.Save(ctx, sess); err != nil {
		n.logger.Warn("notification not queued on session", zap.String("session", key), zap.Error(err))
		return false
	}
	return true
}

// Update turns a management status callback into a notification and
// returns the composed message.
func (n *Notifier) Update(ctx context.Context, u model.StatusUpdate) string {
	msg := workflow.StatusMessage(u)
	n.Notify(ctx, u.Email, msg, SourceCallback)
	return msg
}

// Recent returns the latest notifications, oldest first.
func (n *Notifier) Recent() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := 0
	if len(n.feed) > feedRecent {
		start = len(n.feed) - feedRecent
	}
	return append([]model.Notification(nil), n.feed[start:]...)
}
