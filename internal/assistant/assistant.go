// Package assistant routes chat turns to the restaurant workflows and
// delivers staff notifications back into conversations.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/intent"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/tracing"
)

// Recorder keeps a transcript of chat messages.
type Recorder interface {
	Record(ctx context.Context, entry model.TranscriptEntry)
}

// Deps are the collaborators of an Assistant.
type Deps struct {
	Sessions   session.Store
	Locks      *session.Locker
	Workflows  *workflow.Service
	Classifier *intent.Classifier
	Generator  intent.Generator
	Recorder   Recorder
	Clock      model.Clock
	Logger     *logger.Logger
}

// Assistant handles chat turns.
type Assistant struct {
	sessions   session.Store
	locks      *session.Locker
	workflows  *workflow.Service
	classifier *intent.Classifier
	generator  intent.Generator
	recorder   Recorder
	clock      model.Clock
	logger     *logger.Logger
}

// New creates an assistant.
func New(d Deps) *Assistant {
	locks := d.Locks
	if locks == nil {
		locks = session.NewLocker()
	}
	return &Assistant{
		sessions:   d.Sessions,
		locks:      locks,
		workflows:  d.Workflows,
		classifier: d.Classifier,
		generator:  d.Generator,
		recorder:   d.Recorder,
		clock:      d.Clock,
		logger:     logger.OrNop(d.Logger).Named("assistant"),
	}
}

const faultText = "🙏 Sorry, something went wrong on our side. Please try again, or ask any of our staff for help."

// Handle processes one chat turn. It never fails: faults become an
// apologetic response.
func (a *Assistant) Handle(ctx context.Context, req model.ChatRequest) (resp model.ChatResponse) {
	key := session.Key(req.Email)
	log := a.logger.With(zap.String("session", key))

	ctx, span := tracing.Tracer("assistant").Start(ctx, "chat.turn")
	defer span.End()

	unlock, err := a.locks.Acquire(ctx, key)
	if err != nil {
		log.Error("session lock unavailable", zap.Error(err))
		return model.ChatResponse{Response: faultText, Intent: intent.GeneralChat.String()}
	}
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Error("chat turn panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			resp = model.ChatResponse{Response: faultText, Intent: intent.GeneralChat.String()}
		}
	}()

	sess, err := a.sessions.Load(ctx, key)
	if err != nil {
		log.Error("session unavailable, continuing with a fresh one", zap.Error(err))
		sess = session.New(key)
	}
	if !session.IsGuest(req.Email) {
		sess.Email = key
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		sess.Name = name
	}

	text := strings.TrimSpace(req.Message)
	now := a.clock.Now()
	sess.AppendMessage(model.RoleUser, text, now)

	res := a.route(ctx, sess, text)
	sess.LastIntent = res.Intent.String()
	span.SetAttributes(
		attribute.String("intent", res.Intent.String()),
		attribute.String("intent.stage", res.Stage),
	)
	reply := a.dispatch(ctx, sess, decode(res.Intent, text, sess))

	sess.AppendMessage(model.RoleAssistant, reply.Text, a.clock.Now())
	notes := sess.DrainNotifications()
	sess.UpdatedAt = a.clock.Now()
	if err := a.sessions.Save(ctx, sess); err != nil {
		log.Error("session not saved", zap.Error(err))
	}

	a.record(ctx, key, res.Intent, model.RoleUser, text, now)
	a.record(ctx, key, res.Intent, model.RoleAssistant, reply.Text, a.clock.Now())
	log.Info("chat turn handled",
		zap.String("intent", res.Intent.String()),
		zap.String("stage", res.Stage),
	)

	resp = model.ChatResponse{
		Response:            reply.Text,
		Intent:              res.Intent.String(),
		PaymentLink:         reply.PaymentLink,
		AwaitingPaymentMode: sess.AwaitingPaymentMode,
		OrderData:           reply.Order,
		ComplaintLogged:     reply.ComplaintLogged,
	}
	for _, n := range notes {
		resp.Notifications = append(resp.Notifications, n.Message)
	}
	return resp
}

// route resolves the turn's intent. A pending payment choice short-cuts
// classification when the text names a mode; otherwise the classifier's
// label is final.
func (a *Assistant) route(ctx context.Context, sess *session.Session, text string) intent.Result {
	if sess.AwaitingPaymentMode {
		if _, ok := workflow.ParsePaymentMode(text); ok {
			return intent.Result{Intent: intent.PaymentMode, Stage: intent.StageAwaiting}
		}
	}

	var booking *model.Booking
	if !session.IsGuest(sess.Email) {
		booking = a.workflows.LatestBooking(ctx, sess.Email)
	}
	return a.classifier.Classify(ctx, intent.Input{
		Utterance:      text,
		History:        priorMessages(sess, chatContext),
		BookingContext: intent.BookingContext(booking),
	})
}

func (a *Assistant) record(ctx context.Context, key string, it intent.Intent, role model.Role, text string, at time.Time) {
	if a.recorder == nil {
		return
	}
	a.recorder.Record(ctx, model.TranscriptEntry{
		SessionKey: key,
		Intent:     it.String(),
		Role:       role,
		Text:       text,
		CreatedAt:  at,
	})
}

// ErrSessionRequired is returned by the structured endpoints when neither
// a session id nor an email identifies the conversation.
var ErrSessionRequired = errors.New("session id or email is required")

// PlaceOrder runs a structured order inside the customer's session.
func (a *Assistant) PlaceOrder(ctx context.Context, req model.OrderRequest) (workflow.Reply, error) {
	key := session.Key(firstNonEmpty(req.SessionID, req.Email))
	return a.withSession(ctx, key, func(sess *session.Session) (workflow.Reply, error) {
		if sess.Email == "" && !session.IsGuest(req.Email) {
			sess.Email = session.Key(req.Email)
		}
		if sess.Name == "" {
			sess.Name = strings.TrimSpace(req.Name)
		}
		return a.workflows.PlaceOrder(ctx, sess, req)
	})
}

// SelectPayment settles a session's pending order.
func (a *Assistant) SelectPayment(ctx context.Context, req model.PaymentRequest) (workflow.Reply, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return workflow.Reply{}, ErrSessionRequired
	}
	key := session.Key(req.SessionID)
	return a.withSession(ctx, key, func(sess *session.Session) (workflow.Reply, error) {
		if sess.Email == "" && !session.IsGuest(key) {
			sess.Email = key
		}
		return a.workflows.SelectPaymentMode(ctx, sess, req.PaymentMode)
	})
}

// BookDirect runs a structured booking inside the customer's session.
func (a *Assistant) BookDirect(ctx context.Context, req model.BookingRequest) (workflow.Reply, error) {
	key := session.Key(req.Email)
	return a.withSession(ctx, key, func(sess *session.Session) (workflow.Reply, error) {
		if sess.Email == "" && !session.IsGuest(req.Email) {
			sess.Email = key
		}
		if sess.Name == "" {
			sess.Name = strings.TrimSpace(req.Name)
		}
		return a.workflows.BookDirect(ctx, sess, req)
	})
}

func (a *Assistant) withSession(ctx context.Context, key string, fn func(*session.Session) (workflow.Reply, error)) (reply workflow.Reply, err error) {
	unlock, err := a.locks.Acquire(ctx, key)
	if err != nil {
		return workflow.Reply{}, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("structured request panicked", zap.String("session", key), zap.Any("panic", r))
			reply, err = workflow.Reply{}, fmt.Errorf("internal error: %v", r)
		}
	}()

	sess, err := a.sessions.Load(ctx, key)
	if err != nil {
		return workflow.Reply{}, fmt.Errorf("load session: %w", err)
	}
	reply, err = fn(sess)
	if err != nil {
		return reply, err
	}
	sess.UpdatedAt = a.clock.Now()
	if err := a.sessions.Save(ctx, sess); err != nil {
		a.logger.Error("session not saved", zap.String("session", key), zap.Error(err))
	}
	return reply, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
