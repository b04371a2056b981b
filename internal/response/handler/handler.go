// Package handler orchestrates the response pipeline: build the canonical
// shape for a record, validate it, apply the partner transform, and for
// webhooks sign and deliver the payload.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"taxrelay/internal/audit"
	"taxrelay/internal/platform/metrics"
	"taxrelay/internal/response/builder"
	"taxrelay/internal/response/partner"
	"taxrelay/internal/response/schema"
	"taxrelay/internal/response/validator"
	"taxrelay/internal/verification"
	"taxrelay/internal/webhook"
)

// ErrNoWebhookURL marks a record that cannot be notified because it never
// registered a webhook endpoint.
var ErrNoWebhookURL = errors.New("record has no webhook url")

// Sender delivers a signed payload to a webhook endpoint.
type Sender interface {
	Send(ctx context.Context, requestID, url string, body []byte) (*webhook.Result, error)
}

// AuditPublisher records delivery attempts. Implementations must not
// block the delivery path.
type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event)
}

// Config carries the pipeline's behavioral switches.
type Config struct {
	// ValidateResponses runs the advisory validator on every built
	// response. Findings are logged; responses are served regardless.
	ValidateResponses bool
	// IncludeDebugInfo attaches validator output to invalid responses
	// under the _debug key. Never enabled in production.
	IncludeDebugInfo bool
	// PartnerName selects the partner transform. Empty means canonical
	// shapes on the wire.
	PartnerName string
}

// Delivery is the outcome of one webhook delivery attempt.
type Delivery struct {
	Success  bool
	Response *schema.WebhookResponse
	Result   *webhook.Result
	Err      error
}

// Handler runs the response pipeline. Safe for concurrent use.
type Handler struct {
	cfg      Config
	builder  *builder.Builder
	partners *partner.Registry
	sender   Sender
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Handler)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics attaches the pipeline metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithAuditPublisher attaches the delivery audit publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(h *Handler) {
		h.auditor = p
	}
}

// New constructs a Handler. sender may be nil when the deployment serves
// polling endpoints only; HandleWebhook then fails fast.
func New(cfg Config, b *builder.Builder, partners *partner.Registry, sender Sender, opts ...Option) *Handler {
	h := &Handler{
		cfg:      cfg,
		builder:  b,
		partners: partners,
		sender:   sender,
		logger:   slog.Default(),
		tracer:   otel.Tracer("taxrelay/response"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStatus builds the polling response for rec, reshaped for the
// configured partner.
func (h *Handler) HandleStatus(ctx context.Context, rec *verification.Record) (any, error) {
	resp := h.builder.BuildStatus(rec)
	h.metrics.IncResponsesBuilt(string(schema.TypeStatus))
	h.validate(ctx, resp)
	return h.partners.Apply(h.cfg.PartnerName, resp)
}

// HandleDocument builds the transcript JSON response for rec, reshaped
// for the configured partner.
func (h *Handler) HandleDocument(ctx context.Context, rec *verification.Record) (any, error) {
	resp := h.builder.BuildDocument(rec)
	h.metrics.IncResponsesBuilt(string(schema.TypeDocument))
	h.validate(ctx, resp)
	return h.partners.Apply(h.cfg.PartnerName, resp)
}

// HandleWebhook builds, signs, and delivers the notification for rec. The
// returned Delivery always carries the built response; Success reports
// whether the endpoint accepted it. An error return means the delivery
// could not even be attempted.
func (h *Handler) HandleWebhook(ctx context.Context, rec *verification.Record) (*Delivery, error) {
	if rec.WebhookURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoWebhookURL, rec.RequestID)
	}
	if h.sender == nil {
		return nil, errors.New("webhook sender not configured")
	}

	eventType := builder.EventTypeFor(rec.Status)

	ctx, span := h.tracer.Start(ctx, "webhook.deliver", trace.WithAttributes(
		attribute.String("request.id", rec.RequestID),
		attribute.String("event.type", eventType),
		attribute.Int("retry.count", rec.WebhookRetryCount),
	))
	defer span.End()

	resp := h.builder.BuildWebhook(rec, eventType)
	h.metrics.IncResponsesBuilt(string(schema.TypeWebhook))
	h.validate(ctx, resp)

	payload, err := h.partners.Apply(h.cfg.PartnerName, resp)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("transforming webhook payload: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("encoding webhook payload: %w", err)
	}

	start := time.Now()
	result, err := h.sender.Send(ctx, rec.RequestID, rec.WebhookURL, body)
	h.metrics.ObserveWebhookDuration(time.Since(start).Seconds())

	delivery := &Delivery{Response: resp, Result: result}
	if err != nil {
		delivery.Err = err
		span.RecordError(err)
		h.metrics.IncWebhookDeliveries("failure")
		h.audit(ctx, rec, eventType, audit.OutcomeFailed, 0, err)
		h.logger.Warn("webhook delivery failed",
			"request_id", rec.RequestID,
			"event_type", eventType,
			"retry_count", rec.WebhookRetryCount,
			"error", err)
		return delivery, nil
	}

	delivery.Success = true
	h.metrics.IncWebhookDeliveries("success")
	h.audit(ctx, rec, eventType, h.outcomeFor(rec), result.Status, nil)
	return delivery, nil
}

// outcomeFor distinguishes a first-attempt success from a retry success.
func (h *Handler) outcomeFor(rec *verification.Record) audit.Outcome {
	if rec.WebhookRetryCount > 0 {
		return audit.OutcomeRetried
	}
	return audit.OutcomeDelivered
}

func (h *Handler) audit(ctx context.Context, rec *verification.Record, eventType string, outcome audit.Outcome, status int, sendErr error) {
	if h.auditor == nil {
		return
	}
	event := audit.Event{
		RequestID:  rec.RequestID,
		EventType:  eventType,
		Outcome:    outcome,
		WebhookURL: rec.WebhookURL,
		HTTPStatus: status,
		Attempt:    rec.WebhookRetryCount,
	}
	if sendErr != nil {
		event.Error = sendErr.Error()
	}
	h.auditor.Publish(ctx, event)
}

// validate runs the advisory validator when enabled. Findings are logged
// and, when debug output is on, attached to the envelope. Validation
// never blocks a response.
func (h *Handler) validate(ctx context.Context, resp schema.Response) {
	if !h.cfg.ValidateResponses {
		return
	}
	result := validator.Validate(resp)
	if result.Valid && len(result.Warnings) == 0 {
		return
	}

	env := resp.Env()
	if !result.Valid {
		h.metrics.IncValidationFailures()
		h.logger.WarnContext(ctx, "response failed validation",
			"request_id", env.RequestID,
			"response_type", env.ResponseType,
			"errors", result.Errors,
			"warnings", result.Warnings)
	} else {
		h.logger.DebugContext(ctx, "response validation warnings",
			"request_id", env.RequestID,
			"response_type", env.ResponseType,
			"warnings", result.Warnings)
	}

	if h.cfg.IncludeDebugInfo && !result.Valid {
		env.Debug = &result
	}
}
