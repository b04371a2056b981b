// Package builder constructs canonical response variants from verification
// records. Builders never fail on partial input: every missing field has a
// stated default, so a bare record with only a request id still produces a
// complete, serializable response.
package builder

import (
	"fmt"
	"sort"
	"time"

	"taxrelay/internal/response/schema"
	"taxrelay/internal/verification"
)

// Defaults substituted for absent record fields.
const (
	defaultMessage     = "Request received"
	defaultSource      = "irs_pps"
	defaultEnvironment = "production"
)

// Builder produces canonical responses. It is stateless apart from its
// configuration and safe for concurrent use.
type Builder struct {
	apiVersion string
	now        func() time.Time
}

type Option func(*Builder)

// WithAPIVersion overrides the version stamped into envelopes.
func WithAPIVersion(version string) Option {
	return func(b *Builder) {
		if version != "" {
			b.apiVersion = version
		}
	}
}

// WithClock injects the build-time clock. Tests use this to pin
// envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New constructs a Builder with the default API version and wall clock.
func New(opts ...Option) *Builder {
	b := &Builder{
		apiVersion: schema.APIVersion,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EventTypeFor derives the webhook event type from a record status. This
// rule is the sole source of event types: completed records notify
// transcript.complete, everything else transcript.update.
func EventTypeFor(status verification.Status) string {
	if status == verification.StatusCompleted {
		return schema.EventTranscriptComplete
	}
	return schema.EventTranscriptUpdate
}

// BuildStatus produces the polling-endpoint response for a record.
func (b *Builder) BuildStatus(rec *verification.Record) *schema.StatusResponse {
	now := b.now()

	status := rec.Status
	if status == "" {
		status = verification.StatusPending
	}
	percent := rec.PercentComplete

	resp := &schema.StatusResponse{
		Envelope:        b.envelope(rec.RequestID, schema.TypeStatus, now),
		Status:          status,
		PercentComplete: &percent,
		Taxpayer:        copyTaxpayer(rec.Taxpayer),
		Transcripts:     copyTranscripts(rec.Transcripts, now),
		Metadata:        b.statusMetadata(rec),
		ProcessingInfo:  b.processingInfo(rec, now),
		URLs:            b.urls(rec, true),
	}
	resp.Documents = Summarize(resp.Transcripts)
	return resp
}

// BuildWebhook produces the outbound notification body for a record.
func (b *Builder) BuildWebhook(rec *verification.Record, eventType string) *schema.WebhookResponse {
	now := b.now()

	status := rec.Status
	if status == "" {
		status = verification.StatusCompleted
	}

	resp := &schema.WebhookResponse{
		Envelope:    b.envelope(rec.RequestID, schema.TypeWebhook, now),
		EventType:   eventType,
		Status:      status,
		Taxpayer:    copyTaxpayer(rec.Taxpayer),
		Transcripts: copyTranscripts(rec.Transcripts, now),
		Metadata: schema.WebhookMetadata{
			WebhookSentAt:     now,
			WebhookURL:        optionalString(rec.WebhookURL),
			WebhookRetryCount: rec.WebhookRetryCount,
			ProcessingTimeMS:  rec.ProcessingTime,
		},
		URLs: b.urls(rec, true),
	}
	resp.Documents = Summarize(resp.Transcripts)
	return resp
}

// BuildDocument produces the transcript JSON endpoint response. Document
// responses carry no status and no endpoint URLs.
func (b *Builder) BuildDocument(rec *verification.Record) *schema.DocumentResponse {
	now := b.now()

	resp := &schema.DocumentResponse{
		Envelope:    b.envelope(rec.RequestID, schema.TypeDocument, now),
		Taxpayer:    copyTaxpayer(rec.Taxpayer),
		Transcripts: copyTranscripts(rec.Transcripts, now),
		URLs:        b.urls(rec, false),
	}
	resp.Documents = Summarize(resp.Transcripts)
	return resp
}

func (b *Builder) envelope(requestID string, t schema.ResponseType, now time.Time) schema.Envelope {
	return schema.Envelope{
		RequestID:    requestID,
		Timestamp:    now,
		APIVersion:   b.apiVersion,
		ResponseType: t,
	}
}

func (b *Builder) statusMetadata(rec *verification.Record) schema.StatusMetadata {
	source := rec.Source
	if source == "" {
		source = defaultSource
	}
	env := rec.Environment
	if env == "" {
		env = defaultEnvironment
	}
	return schema.StatusMetadata{
		Source:          source,
		Environment:     env,
		APIKeyUsed:      maskAPIKey(rec.APIKeyUsed),
		RequestSourceIP: optionalString(rec.SourceIP),
	}
}

func (b *Builder) processingInfo(rec *verification.Record, now time.Time) schema.ProcessingInfo {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	message := rec.Message
	if message == "" {
		message = defaultMessage
	}
	return schema.ProcessingInfo{
		CreatedAt:        createdAt,
		UpdatedAt:        now,
		CompletedAt:      rec.CompletedAt,
		ProcessingTimeMS: rec.ProcessingTime,
		Message:          message,
		Error:            optionalString(rec.Error),
		RetryCount:       rec.RetryCount,
	}
}

// urls assembles the URL section. The html_files list carries the URL
// values only; the upstream map keys are dropped by design. Endpoint
// paths are relative; partner transformers prepend the configured base.
func (b *Builder) urls(rec *verification.Record, includeEndpoints bool) schema.DocumentURLs {
	u := schema.DocumentURLs{
		HTMLFiles:   urlValues(rec.TranscriptURLs),
		StorageURLs: rec.StorageURLs,
	}
	if u.StorageURLs == nil {
		u.StorageURLs = map[string]string{}
	}
	if includeEndpoints {
		jsonEndpoint := fmt.Sprintf("/api/transcripts/%s/json", rec.RequestID)
		statusEndpoint := fmt.Sprintf("/api/status/%s", rec.RequestID)
		u.JSONEndpoint = &jsonEndpoint
		u.StatusEndpoint = &statusEndpoint
	}
	return u
}

// urlValues flattens a key→URL map into a list of URLs, sorted by key for
// deterministic output (the upstream map has no meaningful order).
func urlValues(urls map[string]string) []string {
	if len(urls) == 0 {
		return []string{}
	}
	keys := make([]string, 0, len(urls))
	for k := range urls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, urls[k])
	}
	return values
}

func copyTaxpayer(t *verification.Taxpayer) *verification.Taxpayer {
	if t == nil {
		return nil
	}
	out := *t
	if out.TaxYears == nil {
		out.TaxYears = []string{}
	}
	if out.TaxForms == nil {
		out.TaxForms = []string{}
	}
	return &out
}

func copyTranscripts(transcripts []verification.Transcript, now time.Time) []verification.Transcript {
	out := make([]verification.Transcript, len(transcripts))
	for i, t := range transcripts {
		copied := t
		if copied.Forms == nil {
			copied.Forms = []verification.Form{}
		}
		if copied.Metadata.ProcessedAt.IsZero() {
			copied.Metadata.ProcessedAt = now
		}
		out[i] = copied
	}
	return out
}

// maskAPIKey hides all but the last four characters of the key used on the
// request. Nil when no key was presented.
func maskAPIKey(key string) *string {
	if key == "" {
		return nil
	}
	suffix := key
	if len(key) > 4 {
		suffix = key[len(key)-4:]
	}
	masked := "***" + suffix
	return &masked
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
