// Package audit emits delivery audit events to Kafka. Every webhook
// delivery attempt, success or failure, produces one event; downstream
// consumers reconcile partner-facing delivery history from the topic.
package audit

import "time"

// Outcome classifies a delivery attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeRetried   Outcome = "retried"
)

// Event is one delivery audit record. Keyed by RequestID on the topic so
// a request's history lands in order on one partition.
type Event struct {
	RequestID  string    `json:"request_id"`
	EventType  string    `json:"event_type"`
	Outcome    Outcome   `json:"outcome"`
	WebhookURL string    `json:"webhook_url,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
