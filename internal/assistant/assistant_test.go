package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/intent"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
)

var testNow = time.Date(2025, 3, 1, 19, 10, 0, 0, model.IST)

// scripted replies in order, then "".
type scripted struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (s *scripted) Generate(_ context.Context, prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return ""
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type transcript struct {
	mu      sync.Mutex
	entries []model.TranscriptEntry
}

func (r *transcript) Record(_ context.Context, e model.TranscriptEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

type harness struct {
	assistant *Assistant
	notifier  *Notifier
	sessions  *session.MemoryStore
	store     *store.MemoryGateway
	gen       *scripted
	recorder  *transcript
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()
	clock := model.Clock(func() time.Time { return testNow })
	mem := store.NewMemoryGateway().
		Seed(store.SheetBookings, store.Row{
			"Booking_ID": "b-1", "Name": "Asha", "Email": "asha@example.com",
			"Date": "2025-03-01", "Time": "19:00", "Table_No": "T2", "Status": "Pending Payment",
		}).
		Seed(store.SheetMenu,
			store.Row{"Dish": "Dal Tadka", "Category": "Main Course", "Price": "200"},
			store.Row{"Dish": "Paneer Butter Masala", "Category": "Main Course", "Price": "260"},
		)

	h := &harness{
		sessions: session.NewMemoryStore(time.Hour, 100, clock),
		store:    mem,
		gen:      &scripted{replies: replies},
		recorder: &transcript{},
	}
	locks := session.NewLocker()
	svc := workflow.NewService(workflow.Deps{Store: mem, Clock: clock})
	h.assistant = New(Deps{
		Sessions:   h.sessions,
		Locks:      locks,
		Workflows:  svc,
		Classifier: intent.NewClassifier(h.gen, nil),
		Generator:  h.gen,
		Recorder:   h.recorder,
		Clock:      clock,
	})
	h.notifier = NewNotifier(h.sessions, locks, nil, clock, nil)
	return h
}

func (h *harness) chat(msg string) model.ChatResponse {
	return h.assistant.Handle(context.Background(), model.ChatRequest{
		Message: msg,
		Email:   "Asha@Example.com",
		Name:    "Asha",
	})
}

func TestHandleOrderThenCash(t *testing.T) {
	h := newHarness(t, "order_food")

	resp := h.chat("2 dal tadka")
	if resp.Intent != "order_food" {
		t.Fatalf("intent = %q, want order_food", resp.Intent)
	}
	if !resp.AwaitingPaymentMode {
		t.Fatal("expected awaiting payment mode")
	}
	if len(resp.OrderData) != 1 || resp.OrderData[0].Total() != 400 {
		t.Fatalf("order data = %+v", resp.OrderData)
	}

	resp = h.chat("cash please")
	if resp.Intent != "payment_mode" {
		t.Errorf("intent = %q, want payment_mode", resp.Intent)
	}
	if resp.AwaitingPaymentMode {
		t.Error("awaiting flag should be cleared")
	}
	if !strings.Contains(resp.Response, "₹400") {
		t.Errorf("response = %q", resp.Response)
	}
	if n := h.gen.calls(); n != 1 {
		t.Errorf("generator calls = %d, want 1 (payment turn skips classification)", n)
	}

	sess, err := h.sessions.Get(context.Background(), "asha@example.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 4 {
		t.Errorf("messages = %d, want 4", len(sess.Messages))
	}
	if sess.LastIntent != "payment_mode" || sess.PaymentMode != workflow.ModeCash {
		t.Errorf("session = %+v", sess)
	}
	if got := len(h.recorder.entries); got != 4 {
		t.Errorf("transcript entries = %d, want 4", got)
	}
}

func TestHandleRouting(t *testing.T) {
	tests := []struct {
		name     string
		replies  []string
		message  string
		intent   string
		contains string
	}{
		{"location", []string{"location"}, "where are you?", "location", "Fifty Shades of Gravy"},
		{"guideTable", []string{"guide_table"}, "which table is mine", "guide_table", "T2"},
		{"generalChat", []string{"general_chat", "We do catering for events!"}, "do you cater?", "general_chat", "catering"},
		{"chatApology", []string{"general_chat"}, "do you cater?", "general_chat", "+91 98765 43210"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.replies...)
			resp := h.chat(tt.message)
			if resp.Intent != tt.intent {
				t.Errorf("intent = %q, want %q", resp.Intent, tt.intent)
			}
			if !strings.Contains(resp.Response, tt.contains) {
				t.Errorf("response = %q, want it to contain %q", resp.Response, tt.contains)
			}
		})
	}
}

func TestHandleComplaintLogged(t *testing.T) {
	h := newHarness(t, "complaint")
	resp := h.chat("my curry has a hair in it")
	if !resp.ComplaintLogged {
		t.Fatalf("complaint not logged: %q", resp.Response)
	}
	rows := h.store.Rows(store.SheetComplaints)
	if len(rows) != 1 || rows[0].Get("Table_No") != "T2" {
		t.Errorf("complaint rows = %v", rows)
	}
}

func TestHandleChatIsNotAComplaint(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"chocolate", "Do you have any chocolate desserts?"},
		{"highChair", "Can I get a high chair for my kid?"},
		{"coldCoffee", "Is the cold coffee any good?"},
		{"foodIsCold", "the food is cold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "general_chat")
			resp := h.chat(tt.message)
			if resp.Intent != "general_chat" {
				t.Errorf("intent = %q, want general_chat", resp.Intent)
			}
			if resp.ComplaintLogged {
				t.Error("complaint logged for a general_chat turn")
			}
			if rows := h.store.Rows(store.SheetComplaints); len(rows) != 0 {
				t.Errorf("complaint rows = %v", rows)
			}
		})
	}
}

func TestHandleGuestOrder(t *testing.T) {
	h := newHarness(t, "order_food")
	resp := h.assistant.Handle(context.Background(), model.ChatRequest{Message: "2 dal tadka"})
	if !strings.Contains(resp.Response, "book a table first") {
		t.Errorf("response = %q", resp.Response)
	}
	if _, err := h.sessions.Get(context.Background(), session.GuestKey); err != nil {
		t.Errorf("guest session not saved: %v", err)
	}
}

func TestHandleChatContextExcludesCurrentTurn(t *testing.T) {
	h := newHarness(t, "location", "general_chat", "Happy to help!")
	h.chat("where are you?")
	h.chat("thanks a lot")

	last := h.gen.prompts[len(h.gen.prompts)-1]
	if !strings.Contains(last, "where are you?") {
		t.Errorf("chat prompt lacks history: %q", last)
	}
	if strings.Count(last, "thanks a lot") != 1 {
		t.Errorf("current turn should appear once: %q", last)
	}
}

func TestNotificationsDrainedOnNextTurn(t *testing.T) {
	h := newHarness(t, "location", "location")
	h.chat("where are you?")

	ctx := context.Background()
	if !h.notifier.Notify(ctx, "asha@example.com", "✅ approved", SourceCallback) {
		t.Fatal("notification not delivered to live session")
	}
	if h.notifier.Notify(ctx, "ravi@example.com", "no session", SourceCallback) {
		t.Error("notification delivered without a session")
	}

	resp := h.chat("where are you?")
	if len(resp.Notifications) != 1 || resp.Notifications[0] != "✅ approved" {
		t.Fatalf("notifications = %v", resp.Notifications)
	}
	resp = h.chat("where are you?")
	if len(resp.Notifications) != 0 {
		t.Errorf("notifications repeated: %v", resp.Notifications)
	}
}

type panickingSessions struct{ session.Store }

func (panickingSessions) Load(context.Context, string) (*session.Session, error) {
	panic("boom")
}

type brokenSessions struct{ session.Store }

func (brokenSessions) Load(context.Context, string) (*session.Session, error) {
	return nil, errors.New("redis down")
}

func (brokenSessions) Save(context.Context, *session.Session) error {
	return errors.New("redis down")
}

func TestHandleFaults(t *testing.T) {
	t.Run("panicRecovered", func(t *testing.T) {
		h := newHarness(t)
		h.assistant.sessions = panickingSessions{h.sessions}
		resp := h.chat("hello")
		if resp.Response != faultText {
			t.Errorf("response = %q", resp.Response)
		}
	})
	t.Run("sessionStoreDown", func(t *testing.T) {
		h := newHarness(t, "location")
		h.assistant.sessions = brokenSessions{h.sessions}
		resp := h.chat("where are you?")
		if resp.Intent != "location" {
			t.Errorf("intent = %q", resp.Intent)
		}
	})
}

type unavailableLease struct{}

func (unavailableLease) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("lease store unreachable")
}

func TestSharedLockUnavailable(t *testing.T) {
	h := newHarness(t, "complaint")
	locks := session.NewSharedLocker(unavailableLease{})
	h.assistant.locks = locks
	h.notifier.locks = locks

	resp := h.chat("my curry has a hair in it")
	if resp.Response != faultText {
		t.Errorf("response = %q", resp.Response)
	}
	if rows := h.store.Rows(store.SheetComplaints); len(rows) != 0 {
		t.Errorf("turn ran without the session lock: %v", rows)
	}
	if _, err := h.sessions.Get(context.Background(), "asha@example.com"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session written without the lock: %v", err)
	}

	if _, err := h.assistant.PlaceOrder(context.Background(), model.OrderRequest{
		Name:  "Asha",
		Email: "asha@example.com",
		Items: []model.OrderItem{{Name: "Dal Tadka", Quantity: 1}},
	}); err == nil {
		t.Error("PlaceOrder() succeeded without the session lock")
	}
	if h.notifier.Notify(context.Background(), "asha@example.com", "hi", SourceCallback) {
		t.Error("notification delivered without the session lock")
	}
}

func TestStructuredPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.assistant.SelectPayment(ctx, model.PaymentRequest{PaymentMode: "cash"}); !errors.Is(err, ErrSessionRequired) {
		t.Errorf("err = %v, want ErrSessionRequired", err)
	}

	_, err := h.assistant.PlaceOrder(ctx, model.OrderRequest{
		Name:  "Asha",
		Email: "asha@example.com",
		Items: []model.OrderItem{{Name: "Paneer Butter Masala", Quantity: 1, Price: 1}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if _, err := h.assistant.SelectPayment(ctx, model.PaymentRequest{SessionID: "asha@example.com", PaymentMode: "bitcoin"}); !errors.Is(err, workflow.ErrInvalidPaymentMode) {
		t.Errorf("err = %v, want ErrInvalidPaymentMode", err)
	}
	reply, err := h.assistant.SelectPayment(ctx, model.PaymentRequest{SessionID: "asha@example.com", PaymentMode: "cash"})
	if err != nil {
		t.Fatalf("SelectPayment() error = %v", err)
	}
	if !strings.Contains(reply.Text, "₹260") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestNotifierFeed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		h.notifier.Notify(ctx, "ravi@example.com", string(rune('a'+i%26)), SourceCallback)
	}
	recent := h.notifier.Recent()
	if len(recent) != feedRecent {
		t.Fatalf("recent = %d, want %d", len(recent), feedRecent)
	}
	if len(h.notifier.feed) != feedCap {
		t.Errorf("feed = %d, want %d", len(h.notifier.feed), feedCap)
	}

	msg := h.notifier.Update(ctx, model.StatusUpdate{Email: "ravi@example.com", Name: "Ravi", TableNo: "T3", Status: "Rejected"})
	if !strings.Contains(msg, "not approved") {
		t.Errorf("Update() = %q", msg)
	}
	if got := h.notifier.Recent(); got[len(got)-1].Message != msg {
		t.Errorf("last feed entry = %q", got[len(got)-1].Message)
	}
}

type flakyGateway struct {
	*store.MemoryGateway
	fail bool
}

func (f *flakyGateway) Fetch(ctx context.Context, sheet string) ([]store.Row, error) {
	if f.fail {
		return nil, store.ErrService
	}
	return f.MemoryGateway.Fetch(ctx, sheet)
}

func TestPollerTransitions(t *testing.T) {
	h := newHarness(t, "location")
	h.chat("where are you?")
	ctx := context.Background()

	mem := store.NewMemoryGateway().Seed(store.SheetCancellations,
		store.Row{"Customer_Name": "Asha", "Email": "asha@example.com", "Requested_At": "2025-03-01 19:05", "Status": "Pending Review"},
		store.Row{"Customer_Name": "Old", "Email": "old@example.com", "Requested_At": "2025-02-01 19:05", "Status": "Cancelled"},
	)
	g := &flakyGateway{MemoryGateway: mem}
	p := NewPoller(g, h.notifier, nil)

	if err := p.Poll(ctx); err != nil {
		t.Fatalf("seed Poll() error = %v", err)
	}
	if n := len(h.notifier.Recent()); n != 0 {
		t.Fatalf("seeding pass notified %d", n)
	}

	g.fail = true
	if err := p.Poll(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	g.fail = false

	if err := mem.UpdateByKey(ctx, store.SheetCancellations, "Email", "asha@example.com", store.Row{"Status": "Cancelled"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if err := p.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	feed := h.notifier.Recent()
	if len(feed) != 1 || !strings.Contains(feed[0].Message, "**approved**") {
		t.Fatalf("feed = %+v", feed)
	}
	sess, err := h.sessions.Get(ctx, "asha@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Notifications) != 1 {
		t.Errorf("session notifications = %d, want 1", len(sess.Notifications))
	}
}

func TestDecisionMessage(t *testing.T) {
	tests := []struct {
		status string
		ok     bool
		want   string
	}{
		{"cancelled", true, "approved"},
		{"approved", true, "approved"},
		{"declined", true, "not approved"},
		{"pending review", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			msg, ok := decisionMessage("Asha", tt.status)
			if ok != tt.ok || !strings.Contains(msg, tt.want) {
				t.Errorf("decisionMessage(%q) = %q, %v", tt.status, msg, ok)
			}
		})
	}
}
