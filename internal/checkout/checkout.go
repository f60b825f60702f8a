// Package checkout creates hosted payment links and reads their
// completion callbacks.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// NoLink is recorded in place of a payment link that could not be created.
const NoLink = "N/A"

// Metadata keys attached to checkout sessions.
const (
	MetaBookingID = "booking_id"
	MetaKind      = "kind"
	MetaTableNo   = "table_no"
)

// Request describes a single-line checkout in whole rupees.
type Request struct {
	Amount      int64
	Description string
	Email       string
	Metadata    map[string]string
}

// Provider creates a hosted checkout and returns its URL.
type Provider interface {
	CreateCheckout(ctx context.Context, req Request) (string, error)
}

// StripeProvider creates Stripe Checkout sessions.
type StripeProvider struct {
	client   session.Client
	baseURL  string
	currency string
}

// NewStripeProvider creates a provider. backend may be nil for the default
// Stripe API backend.
func NewStripeProvider(secretKey, baseURL, currency string, backend stripe.Backend) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if currency == "" {
		currency = string(stripe.CurrencyINR)
	}
	return &StripeProvider{
		client:   session.Client{B: backend, Key: secretKey},
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
	}, nil
}

// CreateCheckout implements Provider.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req Request) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("checkout amount must be positive, got %d", req.Amount)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.baseURL + "/success"),
		CancelURL:          stripe.String(p.baseURL + "/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(req.Amount * 100),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.client.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

// Completion is a finished checkout reported by the payment provider.
type Completion struct {
	SessionID string
	Email     string
	Amount    int64
	Status    string
	Metadata  map[string]string
}

// ErrIgnoredEvent is returned for verified events other than a completed
// checkout session.
var ErrIgnoredEvent = errors.New("event ignored")

// ParseCompletion verifies a webhook payload against its signature header
// and extracts the completed checkout.
func ParseCompletion(payload []byte, signature, secret string) (*Completion, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, ErrIgnoredEvent
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	c := &Completion{
		SessionID: s.ID,
		Amount:    s.AmountTotal / 100,
		Status:    "completed",
		Metadata:  s.Metadata,
	}
	switch {
	case s.CustomerDetails != nil && s.CustomerDetails.Email != "":
		c.Email = s.CustomerDetails.Email
	default:
		c.Email = s.CustomerEmail
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c, nil
}
