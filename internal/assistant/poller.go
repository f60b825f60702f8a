package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// DefaultPollSpec is how often the cancellations table is checked.
const DefaultPollSpec = "@every 30s"

// Poller watches the cancellations table and notifies customers when
// staff approve or reject their request.
type Poller struct {
	store    store.Gateway
	notifier *Notifier
	logger   *logger.Logger

	mu     sync.Mutex
	seeded bool
	last   map[string]string
}

// NewPoller creates a poller.
func NewPoller(g store.Gateway, n *Notifier, log *logger.Logger) *Poller {
	return &Poller{
		store:    g,
		notifier: n,
		logger:   logger.OrNop(log).Named("poller"),
		last:     make(map[string]string),
	}
}

// Run polls on spec until ctx is done.
func (p *Poller) Run(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultPollSpec
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if err := p.Poll(ctx); err != nil {
			p.logger.Warn("cancellation poll failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("poller schedule %q: %w", spec, err)
	}

	p.logger.Info("cancellation poller started", zap.String("spec", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("cancellation poller stopped")
	return nil
}

// Poll reads the cancellations table once. The first successful pass only
// records current statuses so old decisions are not replayed.
func (p *Poller) Poll(ctx context.Context) error {
	rows, err := p.store.Fetch(ctx, store.SheetCancellations)
	if err != nil {
		return fmt.Errorf("fetch cancellations: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range rows {
		email := strings.ToLower(strings.TrimSpace(r.Get("Email")))
		if email == "" {
			continue
		}
		key := email + "|" + r.Get("Requested_At")
		status := strings.ToLower(strings.TrimSpace(r.Get("Status")))

		prev, seen := p.last[key]
		p.last[key] = status
		if !p.seeded || (seen && prev == status) {
			continue
		}

		msg, ok := decisionMessage(r.Get("Customer_Name"), status)
		if !ok {
			continue
		}
		delivered := p.notifier.Notify(ctx, email, msg, SourcePoller)
		p.logger.Info("cancellation decision delivered",
			zap.String("email", email),
			zap.String("status", status),
			zap.Bool("live_session", delivered),
		)
	}
	p.seeded = true
	return nil
}

func decisionMessage(name, status string) (string, bool) {
	if name = strings.TrimSpace(name); name == "" {
		name = "there"
	}
	switch status {
	case "cancelled", "canceled", "approved":
		return fmt.Sprintf("✅ Hello %s, your cancellation request has been **approved**. Your order is now cancelled.", name), true
	case "rejected", "refused", "declined":
		return fmt.Sprintf("❌ Hello %s, sorry, your cancellation request was **not approved**. Your order will still be served.", name), true
	default:
		return "", false
	}
}
