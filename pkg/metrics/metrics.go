// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMRequestDuration tracks text generation latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Text generation request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "outcome"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// IntentsTotal counts classified turns by label and the stage that resolved them.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intents_total",
			Help: "Classified chat turns",
		},
		[]string{"intent", "stage"},
	)

	// StoreRequestDuration tracks spreadsheet gateway calls.
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_request_duration_seconds",
			Help:    "Data store call duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"sheet", "op", "outcome"},
	)

	// BookingsTotal counts booking attempts.
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// OrderLinesTotal counts parsed order lines.
	OrderLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_lines_total",
			Help: "Order lines by outcome",
		},
		[]string{"outcome"},
	)

	// PaymentsTotal counts payment mode selections.
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment mode selections",
		},
		[]string{"mode"},
	)

	// RequestsLogged counts cancellation, complaint and manager requests written for staff.
	RequestsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staff_requests_total",
			Help: "Requests logged for staff review",
		},
		[]string{"kind"},
	)

	// NotificationsTotal counts queued user notifications.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Queued notifications",
		},
		[]string{"source", "delivered"},
	)

	// SessionsActive tracks sessions held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently held in memory",
		},
	)

	// EventsPublished counts stream publishes.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_events_published_total",
			Help: "Events published to JetStream",
		},
		[]string{"kind", "outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLM records a text generation call.
func RecordLLM(provider, outcome string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider, outcome).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordIntent records a classification result.
func RecordIntent(intent, stage string) {
	IntentsTotal.WithLabelValues(intent, stage).Inc()
}

// RecordStore records a data store call.
func RecordStore(sheet, op, outcome string, duration float64) {
	StoreRequestDuration.WithLabelValues(sheet, op, outcome).Observe(duration)
}

// RecordBooking records a booking attempt.
func RecordBooking(kind, outcome string) {
	BookingsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordOrderLine records a parsed order line.
func RecordOrderLine(outcome string) {
	OrderLinesTotal.WithLabelValues(outcome).Inc()
}

// RecordPayment records a payment mode selection.
func RecordPayment(mode string) {
	PaymentsTotal.WithLabelValues(mode).Inc()
}

// RecordStaffRequest records a request logged for staff.
func RecordStaffRequest(kind string) {
	RequestsLogged.WithLabelValues(kind).Inc()
}

// RecordNotification records a queued notification.
func RecordNotification(source string, delivered bool) {
	d := "false"
	if delivered {
		d = "true"
	}
	NotificationsTotal.WithLabelValues(source, d).Inc()
}

// RecordEvent records a stream publish.
func RecordEvent(kind, outcome string) {
	EventsPublished.WithLabelValues(kind, outcome).Inc()
}
