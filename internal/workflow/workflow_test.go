package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
)

var testNow = time.Date(2025, 3, 1, 19, 10, 0, 0, model.IST)

type stubCheckout struct {
	mu   sync.Mutex
	reqs []checkout.Request
	err  error
}

func (c *stubCheckout) CreateCheckout(_ context.Context, req checkout.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return "", c.err
	}
	return "https://pay.test/session", nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// faultyGateway fails selected writes.
type faultyGateway struct {
	*store.MemoryGateway
	failAppend string
	failUpdate string
}

func (f *faultyGateway) Append(ctx context.Context, sheet string, row store.Row) error {
	if sheet == f.failAppend {
		return store.ErrService
	}
	return f.MemoryGateway.Append(ctx, sheet, row)
}

func (f *faultyGateway) UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields store.Row) error {
	if keyValue == f.failUpdate && fields["Availability"] == "No" {
		return store.ErrService
	}
	return f.MemoryGateway.UpdateByKey(ctx, sheet, keyColumn, keyValue, fields)
}

type fixture struct {
	svc    *Service
	store  *store.MemoryGateway
	pay    *stubCheckout
	events *recordingPublisher
}

func newFixture(t *testing.T, g store.Gateway, mem *store.MemoryGateway, now time.Time) *fixture {
	t.Helper()
	f := &fixture{store: mem, pay: &stubCheckout{}, events: &recordingPublisher{}}
	f.svc = NewService(Deps{
		Store:     g,
		Checkout:  f.pay,
		Clock:     func() time.Time { return now },
		Publisher: f.events,
		Settings: Settings{
			Address: "12 MG Road, Bengaluru",
			Hours:   "11 AM - 11 PM",
			Phone:   "+91 98765 43210",
			MapsURL: "https://maps.example/gravy",
		},
	})
	return f
}

func memFixture(t *testing.T, mem *store.MemoryGateway) *fixture {
	return newFixture(t, mem, mem, testNow)
}

func seatedStore() *store.MemoryGateway {
	return store.NewMemoryGateway().
		Seed(store.SheetBookings, store.Row{
			"Booking_ID": "b-1", "Name": "Asha", "Email": "asha@example.com",
			"Date": "2025-03-01", "Time": "19:00", "Table_No": "T2", "Status": "Pending Payment",
		}).
		Seed(store.SheetMenu,
			store.Row{"Dish": "Dal Tadka", "Category": "Main Course", "Price": "200"},
			store.Row{"Dish": "Paneer Butter Masala", "Category": "Main Course", "Price": "260"},
		)
}

func seatedSession() *session.Session {
	s := session.New("asha@example.com")
	s.Email = "asha@example.com"
	s.Name = "Asha"
	return s
}

func TestActiveBookingWindow(t *testing.T) {
	mem := store.NewMemoryGateway().Seed(store.SheetBookings, store.Row{
		"Email": "asha@example.com", "Date": "2025-03-01", "Time": "19:00", "Table_No": "T1",
	})
	tests := []struct {
		name   string
		at     string
		active bool
	}{
		{"justInsideBefore", "18:31", true},
		{"startTime", "19:00", true},
		{"justInsideAfter", "20:59", true},
		{"tooEarly", "18:29", false},
		{"tooLate", "21:01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, _ := time.ParseInLocation("2006-01-02 15:04", "2025-03-01 "+tt.at, model.IST)
			f := newFixture(t, mem, mem, at)
			got := f.svc.ActiveBooking(context.Background(), "Asha@Example.com")
			if (got != nil) != tt.active {
				t.Errorf("ActiveBooking at %s = %v, want active=%v", tt.at, got, tt.active)
			}
		})
	}
}

func TestActiveBookingFormats(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
	}{
		{"plain", "2025-03-01", "19:00"},
		{"twelveHour", "2025-03-01", "7:00 PM"},
		{"lowerNoSpace", "2025-03-01", "7:00pm"},
		{"seconds", "2025-03-01", "19:00:00"},
		{"sheetTimestamps", "2025-02-28T18:30:00.000Z", "1899-12-30T13:30:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryGateway().Seed(store.SheetBookings, store.Row{
				"Email": "asha@example.com", "Date": tt.date, "Time": tt.time,
			})
			if memFixture(t, mem).svc.ActiveBooking(context.Background(), "asha@example.com") == nil {
				t.Errorf("booking %s %s not active at %s", tt.date, tt.time, testNow)
			}
		})
	}
}

func TestActiveBookingPicksLatest(t *testing.T) {
	mem := store.NewMemoryGateway().Seed(store.SheetBookings,
		store.Row{"Email": "asha@example.com", "Date": "2025-03-01", "Time": "19:00", "Table_No": "T4"},
		store.Row{"Email": "asha@example.com", "Date": "2025-03-01", "Time": "18:00", "Table_No": "T1"},
		store.Row{"Email": "asha@example.com", "Date": "2025-03-01", "Time": "garbage", "Table_No": "T9"},
		store.Row{"Email": "ravi@example.com", "Date": "2025-03-01", "Time": "19:05", "Table_No": "T7"},
	)
	b := memFixture(t, mem).svc.ActiveBooking(context.Background(), "asha@example.com")
	if b == nil || b.TableNo() != "T4" {
		t.Fatalf("ActiveBooking() = %+v, want table T4", b)
	}
}

func TestActiveBookingOtherDay(t *testing.T) {
	mem := store.NewMemoryGateway().Seed(store.SheetBookings,
		store.Row{"Email": "asha@example.com", "Date": "2025-02-28", "Time": "19:00"},
	)
	if b := memFixture(t, mem).svc.ActiveBooking(context.Background(), "asha@example.com"); b != nil {
		t.Errorf("yesterday's booking reported active: %+v", b)
	}
}

func TestExtractBooking(t *testing.T) {
	f := memFixture(t, store.NewMemoryGateway())

	req, missing := f.svc.ExtractBooking(
		"Hi, my name is asha verma and my email is Asha@Example.com. Book a table for 5 people on 2025-03-02 at 8:30 pm",
		model.User{},
	)
	want := model.BookingRequest{Name: "Asha Verma", Email: "asha@example.com", People: 5, Date: "2025-03-02", Time: "8:30 pm"}
	if len(missing) != 0 || req != want {
		t.Errorf("ExtractBooking() = %+v missing %v, want %+v", req, missing, want)
	}

	req, _ = f.svc.ExtractBooking("table for 2 people tomorrow at 13:00", model.User{Name: "Ravi", Email: "ravi@example.com"})
	if req.Name != "Ravi" || req.Email != "ravi@example.com" || req.Date != "2025-03-02" {
		t.Errorf("fallbacks not applied: %+v", req)
	}
}

func TestBookFromTextMissingFields(t *testing.T) {
	f := memFixture(t, store.NewMemoryGateway())
	reply := f.svc.BookFromText(context.Background(), session.New(session.GuestKey), "book a table for 4 people")

	want := "Please share your name, email address, date, time to complete your booking."
	if reply.Text != want {
		t.Errorf("reply = %q, want %q", reply.Text, want)
	}
}

func TestBookFromTextRejectsImpossibleTime(t *testing.T) {
	for _, clock := range []string{"25:00", "7:75 pm", "99:99"} {
		t.Run(clock, func(t *testing.T) {
			mem := tableStore("Yes", "Yes")
			f := memFixture(t, mem)
			reply := f.svc.BookFromText(context.Background(), session.New("asha@example.com"),
				"my name is Asha, email asha@example.com, table for 2 people today at "+clock)
			if !strings.Contains(reply.Text, "check your booking details") {
				t.Errorf("reply = %q", reply.Text)
			}
			if len(mem.Rows(store.SheetBookings)) != 0 {
				t.Error("impossible time wrote a booking")
			}
			if got := availability(mem); got[0] != "Yes" || got[1] != "Yes" {
				t.Errorf("availability = %v, want untouched", got)
			}
		})
	}
}

func tableStore(avail ...string) *store.MemoryGateway {
	mem := store.NewMemoryGateway()
	for i, a := range avail {
		mem.Seed(store.SheetTables, store.Row{"Table": "T" + string(rune('1'+i)), "Availability": a})
	}
	return mem
}

func availability(mem *store.MemoryGateway) []string {
	var out []string
	for _, r := range mem.Rows(store.SheetTables) {
		out = append(out, r.Get("Availability"))
	}
	return out
}

func TestBookTodayAssignsTables(t *testing.T) {
	mem := tableStore("Yes", "No", "Yes", "Yes")
	f := memFixture(t, mem)
	sess := session.New("asha@example.com")

	reply, err := f.svc.BookDirect(context.Background(), sess, model.BookingRequest{
		Name: "Asha", Email: "Asha@example.com", People: 5, Date: "2025-03-01", Time: "20:00",
	})
	if err != nil {
		t.Fatalf("BookDirect() error = %v", err)
	}

	if !reflect.DeepEqual(availability(mem), []string{"No", "No", "No", "Yes"}) {
		t.Errorf("availability = %v", availability(mem))
	}
	if reply.Booking == nil || reply.Booking.TotalAmount != 200 || reply.Booking.TableNo() != "T1, T3" {
		t.Fatalf("booking = %+v", reply.Booking)
	}
	if !strings.Contains(reply.Text, "🪑 Assigned table(s): T1, T3") || !strings.Contains(reply.Text, "💰 Total: ₹200") {
		t.Errorf("reply = %q", reply.Text)
	}

	rows := mem.Rows(store.SheetBookings)
	if len(rows) != 1 || rows[0].Get("Status") != "Pending Payment" || rows[0].Get("Booking_ID") == "" {
		t.Errorf("booking rows = %v", rows)
	}
	if sess.TableNo != "T1, T3" || sess.PaymentLink != "https://pay.test/session" {
		t.Errorf("session = %+v", sess)
	}
	if len(f.pay.reqs) != 1 || f.pay.reqs[0].Amount != 200 || f.pay.reqs[0].Metadata[checkout.MetaBookingID] != reply.Booking.ID {
		t.Errorf("checkout requests = %+v", f.pay.reqs)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != model.EventBookingCreated {
		t.Errorf("events = %v", got)
	}
}

func TestBookTodayShortfallMutatesNothing(t *testing.T) {
	mem := tableStore("Yes", "No", "No")
	f := memFixture(t, mem)

	reply, err := f.svc.BookDirect(context.Background(), session.New("a@b.co"), model.BookingRequest{
		Name: "Asha", Email: "a@b.co", People: 5, Date: "2025-03-01", Time: "20:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "😔 Sorry, we only have 1 tables available right now." {
		t.Errorf("reply = %q", reply.Text)
	}
	if !reflect.DeepEqual(availability(mem), []string{"Yes", "No", "No"}) {
		t.Errorf("availability changed: %v", availability(mem))
	}
	if len(mem.Rows(store.SheetBookings)) != 0 || len(f.pay.reqs) != 0 {
		t.Error("shortfall wrote a booking or requested payment")
	}
}

func TestBookTodayFullyBooked(t *testing.T) {
	f := memFixture(t, tableStore("No", "No"))
	reply, _ := f.svc.BookDirect(context.Background(), session.New("a@b.co"), model.BookingRequest{
		Name: "Asha", Email: "a@b.co", People: 2, Date: "2025-03-01", Time: "20:00",
	})
	if reply.Text != "😔 Sorry, all tables are booked right now." {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestBookTodayRollsBack(t *testing.T) {
	tests := []struct {
		name string
		g    func(*store.MemoryGateway) store.Gateway
	}{
		{"bookingAppendFails", func(m *store.MemoryGateway) store.Gateway {
			return &faultyGateway{MemoryGateway: m, failAppend: store.SheetBookings}
		}},
		{"secondFlipFails", func(m *store.MemoryGateway) store.Gateway {
			return &faultyGateway{MemoryGateway: m, failUpdate: "T2"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := tableStore("Yes", "Yes", "Yes")
			f := newFixture(t, tt.g(mem), mem, testNow)
			sess := session.New("a@b.co")

			reply, err := f.svc.BookDirect(context.Background(), sess, model.BookingRequest{
				Name: "Asha", Email: "a@b.co", People: 8, Date: "2025-03-01", Time: "20:00",
			})
			if err != nil {
				t.Fatal(err)
			}
			if reply.Text != bookingFailedText {
				t.Errorf("reply = %q", reply.Text)
			}
			if !reflect.DeepEqual(availability(mem), []string{"Yes", "Yes", "Yes"}) {
				t.Errorf("tables not released: %v", availability(mem))
			}
			if sess.TableNo != "" {
				t.Errorf("session holds tables %q", sess.TableNo)
			}
		})
	}
}

func TestBookAdvance(t *testing.T) {
	mem := tableStore("Yes")
	f := memFixture(t, mem)

	reply := f.svc.BookFromText(context.Background(), session.New(session.GuestKey),
		"my name is Ravi, email ravi@example.com, 6 people on 2025-03-05 at 7:30 pm")

	rows := mem.Rows(store.SheetAdvanceBookings)
	if len(rows) != 1 || rows[0].Get("Status") != "Advance Booking - Pending Payment" || rows[0].Get("Table_No") != "" {
		t.Fatalf("advance rows = %v", rows)
	}
	if rows[0].Get("Total_Amount") != "₹200" {
		t.Errorf("total = %s", rows[0].Get("Total_Amount"))
	}
	if !reflect.DeepEqual(availability(mem), []string{"Yes"}) {
		t.Error("advance booking touched tables")
	}
	if !strings.HasPrefix(reply.Text, "📅 Your advance reservation for 2025-03-05 at 7:30 pm is recorded.") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestBookPastDate(t *testing.T) {
	f := memFixture(t, tableStore("Yes"))
	reply, _ := f.svc.BookDirect(context.Background(), session.New("a@b.co"), model.BookingRequest{
		Name: "Asha", Email: "a@b.co", People: 2, Date: "2025-02-27", Time: "20:00",
	})
	if !strings.Contains(reply.Text, "already passed") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestBookDirectValidation(t *testing.T) {
	valid := model.BookingRequest{Name: "Asha", Email: "a@b.co", People: 2, Date: "2025-03-01", Time: "7:30 pm"}
	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
	}{
		{"shortName", func(r *model.BookingRequest) { r.Name = "A" }},
		{"badEmail", func(r *model.BookingRequest) { r.Email = "not-an-email" }},
		{"noPeople", func(r *model.BookingRequest) { r.People = 0 }},
		{"badDate", func(r *model.BookingRequest) { r.Date = "01/03/2025" }},
		{"badTime", func(r *model.BookingRequest) { r.Time = "7pm" }},
		{"hourOutOfRange", func(r *model.BookingRequest) { r.Time = "25:00" }},
		{"minuteOutOfRange", func(r *model.BookingRequest) { r.Time = "7:75 pm" }},
		{"noSuchClock", func(r *model.BookingRequest) { r.Time = "99:99" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := tableStore("Yes")
			f := memFixture(t, mem)
			req := valid
			tt.mutate(&req)
			if _, err := f.svc.BookDirect(context.Background(), session.New("a@b.co"), req); !errors.Is(err, ErrInvalid) {
				t.Errorf("BookDirect() error = %v, want ErrInvalid", err)
			}
			if len(mem.Rows(store.SheetBookings)) != 0 {
				t.Error("invalid request wrote a booking")
			}
		})
	}
}

func TestTablesNeeded(t *testing.T) {
	f := memFixture(t, store.NewMemoryGateway())
	for people, want := range map[int]int{1: 1, 4: 1, 5: 2, 8: 2, 9: 3} {
		if got := f.svc.TablesNeeded(people); got != want {
			t.Errorf("TablesNeeded(%d) = %d, want %d", people, got, want)
		}
	}
}
