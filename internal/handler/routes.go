package handler

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups the endpoint handlers mounted by Mount. Optional
// handlers may be nil.
type Handlers struct {
	Health        *HealthHandler
	Chat          *ChatHandler
	Booking       *BookingHandler
	Order         *OrderHandler
	Menu          *MenuHandler
	Webhook       *WebhookHandler
	Notifications *NotificationHandler
	Account       *AccountHandler
	Transcript    *TranscriptHandler
}

// Mount registers the API routes on r.
func Mount(r chi.Router, h Handlers) {
	r.Get("/", h.Health.Home)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Post("/chatbot", h.Chat.Chat)
	r.Post("/book-table", h.Booking.Book)
	r.Post("/order", h.Order.Order)
	r.Post("/payment", h.Order.Payment)
	r.Get("/api/menu", h.Menu.Menu)

	r.Get("/notifications", h.Notifications.List)
	r.Post("/cancellation_update", h.Notifications.CancellationUpdate)

	if h.Webhook != nil {
		r.Post("/stripe/webhook", h.Webhook.Stripe)
	}
	if h.Account != nil {
		r.Post("/register", h.Account.Register)
		r.Post("/login", h.Account.Login)
	}

	r.Route("/debug", func(r chi.Router) {
		r.Get("/bookings", h.Booking.Debug)
		if h.Transcript != nil {
			r.Get("/transcript", h.Transcript.Get)
		}
	})
}
