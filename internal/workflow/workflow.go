// Package workflow implements the restaurant's booking, ordering, payment
// and staff-request handlers on top of the data store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/pricing"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

var (
	// ErrInvalid wraps request validation failures on the structured paths.
	ErrInvalid = errors.New("invalid request")
	// ErrInvalidPaymentMode is returned for modes other than online or cash.
	ErrInvalidPaymentMode = errors.New("payment mode must be online or cash")
)

// Settings are the restaurant constants the workflows quote.
type Settings struct {
	RestaurantName    string
	Address           string
	Hours             string
	Phone             string
	MapsURL           string
	TablePrice        int64
	TableCapacity     int
	DefaultOrderTotal int64
}

func (s Settings) withDefaults() Settings {
	if s.RestaurantName == "" {
		s.RestaurantName = "Fifty Shades of Gravy"
	}
	if s.Phone == "" {
		s.Phone = "+91 98765 43210"
	}
	if s.TablePrice <= 0 {
		s.TablePrice = 100
	}
	if s.TableCapacity <= 0 {
		s.TableCapacity = 4
	}
	if s.DefaultOrderTotal <= 0 {
		s.DefaultOrderTotal = 500
	}
	return s
}

// Publisher receives domain events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e model.Event)
}

// Reply is a workflow outcome shown to the customer.
type Reply struct {
	Text                string
	PaymentLink         string
	AwaitingPaymentMode bool
	Order               []model.OrderLine
	Booking             *model.Booking
	ComplaintLogged     bool
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     store.Gateway
	Pricing   *pricing.Engine
	Checkout  checkout.Provider
	Clock     model.Clock
	Publisher Publisher
	Settings  Settings
	Logger    *logger.Logger
}

// Service runs the workflows.
type Service struct {
	store    store.Gateway
	pricing  *pricing.Engine
	checkout checkout.Provider
	clock    model.Clock
	events   Publisher
	settings Settings
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a workflow service.
func NewService(d Deps) *Service {
	log := logger.OrNop(d.Logger).Named("workflow")
	engine := d.Pricing
	if engine == nil {
		engine = pricing.NewEngine(d.Store, d.Clock, log)
	}
	return &Service{
		store:    d.Store,
		pricing:  engine,
		checkout: d.Checkout,
		clock:    d.Clock,
		events:   d.Publisher,
		settings: d.Settings.withDefaults(),
		validate: newValidator(),
		logger:   log,
	}
}

var clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}\s?(am|pm|AM|PM)?$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if !clockPattern.MatchString(v) {
			return false
		}
		_, _, ok := ParseBookingClock(v)
		return ok
	})
	return v
}

// Settings returns the effective restaurant settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// Menu returns the menu priced for customerID.
func (s *Service) Menu(ctx context.Context, customerID string) ([]model.MenuItem, error) {
	rows, err := s.store.Fetch(ctx, store.SheetMenu)
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	return s.pricing.Quote(ctx, customerID).Menu(store.DecodeMenu(rows)), nil
}

// paymentLink creates a checkout link, degrading to checkout.NoLink.
func (s *Service) paymentLink(ctx context.Context, req checkout.Request) string {
	if s.checkout == nil {
		return checkout.NoLink
	}
	link, err := s.checkout.CreateCheckout(ctx, req)
	if err != nil || link == "" {
		s.logger.Warn("checkout link unavailable",
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		return checkout.NoLink
	}
	return link
}

func (s *Service) publish(ctx context.Context, typ model.EventType, email string, meta map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, model.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Email:     email,
		Metadata:  meta,
		CreatedAt: s.clock.Now(),
	})
}

func (s *Service) stamp() string {
	return s.clock.Now().Format(model.StampLayout)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid " + strings.Join(fields, ", ")
}
