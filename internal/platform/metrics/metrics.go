package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the response pipeline. Call New
// once at startup; services tolerate a nil *Metrics so unit tests can skip
// registration entirely.
type Metrics struct {
	ResponsesBuilt     *prometheus.CounterVec
	ValidationFailures prometheus.Counter
	WebhookDeliveries  *prometheus.CounterVec
	WebhookDurationSec prometheus.Histogram
	RetriesScheduled   prometheus.Counter
	RecordFetches      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ResponsesBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxrelay_responses_built_total",
			Help: "Canonical responses built, by variant (status, webhook, document)",
		}, []string{"variant"}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxrelay_response_validation_failures_total",
			Help: "Responses that failed advisory validation (still returned)",
		}),
		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxrelay_webhook_deliveries_total",
			Help: "Webhook delivery attempts, by outcome (success, failure)",
		}, []string{"outcome"}),
		WebhookDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxrelay_webhook_attempt_duration_seconds",
			Help:    "Latency of webhook HTTP delivery attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RetriesScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxrelay_webhook_retries_scheduled_total",
			Help: "Webhook retries handed to the retry scheduler",
		}),
		RecordFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxrelay_record_fetches_total",
			Help: "Verification record lookups, by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

// IncResponsesBuilt is nil-safe for tests that run without a registry.
func (m *Metrics) IncResponsesBuilt(variant string) {
	if m != nil {
		m.ResponsesBuilt.WithLabelValues(variant).Inc()
	}
}

func (m *Metrics) IncValidationFailures() {
	if m != nil {
		m.ValidationFailures.Inc()
	}
}

func (m *Metrics) IncWebhookDeliveries(outcome string) {
	if m != nil {
		m.WebhookDeliveries.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveWebhookDuration(seconds float64) {
	if m != nil {
		m.WebhookDurationSec.Observe(seconds)
	}
}

func (m *Metrics) IncRetriesScheduled() {
	if m != nil {
		m.RetriesScheduled.Inc()
	}
}

func (m *Metrics) IncRecordFetches(result string) {
	if m != nil {
		m.RecordFetches.WithLabelValues(result).Inc()
	}
}
