// Package schema defines the three canonical response shapes served to
// partners: status, webhook, and document. The shapes are the wire
// contract; field names and defaults must stay stable for existing
// integrations.
package schema

import (
	"time"

	"taxrelay/internal/verification"
)

// APIVersion is stamped into every response envelope unless overridden by
// configuration.
const APIVersion = "2.0"

// ResponseType discriminates the canonical variants on the wire.
type ResponseType string

const (
	TypeStatus   ResponseType = "status"
	TypeWebhook  ResponseType = "webhook"
	TypeDocument ResponseType = "document"
)

// Webhook event types. Derivation is a single rule: a completed record
// emits EventTranscriptComplete, every other status emits
// EventTranscriptUpdate.
const (
	EventTranscriptComplete = "transcript.complete"
	EventTranscriptUpdate   = "transcript.update"
)

// Envelope carries the fields shared by every response variant. Variants
// embed it by value so the fields flatten into the top-level JSON object.
type Envelope struct {
	RequestID    string       `json:"request_id"`
	Timestamp    time.Time    `json:"timestamp"`
	APIVersion   string       `json:"api_version"`
	ResponseType ResponseType `json:"response_type"`

	// Debug holds validator output when the handler is configured to
	// attach diagnostics. Never populated on the happy path.
	Debug *ValidationResult `json:"_debug,omitempty"`
}

// Response is implemented by every canonical variant.
type Response interface {
	Env() *Envelope
}

// ValidationResult is the advisory validator's report. Errors mark the
// response structurally incomplete; warnings never do. Validation output
// is diagnostic only and never blocks a response.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// StatusResponse is served from the polling status endpoint.
type StatusResponse struct {
	Envelope
	Status          verification.Status       `json:"status"`
	PercentComplete *int                      `json:"percent_complete"`
	Taxpayer        *verification.Taxpayer    `json:"taxpayer"`
	Transcripts     []verification.Transcript `json:"transcripts"`
	Documents       DocumentsSection          `json:"documents"`
	Metadata        StatusMetadata            `json:"metadata"`
	ProcessingInfo  ProcessingInfo            `json:"processing_info"`
	URLs            DocumentURLs              `json:"urls"`
}

func (r *StatusResponse) Env() *Envelope { return &r.Envelope }

// WebhookResponse is the body of outbound webhook notifications.
type WebhookResponse struct {
	Envelope
	EventType   string                    `json:"event_type"`
	Status      verification.Status       `json:"status"`
	Taxpayer    *verification.Taxpayer    `json:"taxpayer"`
	Transcripts []verification.Transcript `json:"transcripts"`
	Documents   DocumentsSection          `json:"documents"`
	Metadata    WebhookMetadata           `json:"metadata"`
	URLs        DocumentURLs              `json:"urls"`
}

func (r *WebhookResponse) Env() *Envelope { return &r.Envelope }

// DocumentResponse is served from the transcript JSON endpoint. It carries
// no status field: document consumers only see completed data.
type DocumentResponse struct {
	Envelope
	Taxpayer    *verification.Taxpayer    `json:"taxpayer"`
	Transcripts []verification.Transcript `json:"transcripts"`
	Documents   DocumentsSection          `json:"documents"`
	URLs        DocumentURLs              `json:"urls"`
}

func (r *DocumentResponse) Env() *Envelope { return &r.Envelope }

// DocumentsSection is the derived aggregation over a record's transcripts.
// It is recomputed on every build, never stored.
type DocumentsSection struct {
	TotalCount     int                                  `json:"total_count"`
	ByYear         map[string][]verification.Transcript `json:"by_year"`
	ByType         map[string][]FormRecord              `json:"by_type"`
	AvailableForms []string                             `json:"available_forms"`
	IncomeSummary  map[string]verification.IncomeData   `json:"income_summary"`
}

// FormRecord is a form annotated with the tax year of the transcript it
// appeared on. The embedded form's fields flatten alongside year.
type FormRecord struct {
	Year string `json:"year"`
	verification.Form
}

// DocumentURLs points consumers at the rendered artifacts and endpoints
// for a request. Document responses carry only files and storage URLs.
type DocumentURLs struct {
	HTMLFiles      []string          `json:"html_files"`
	JSONEndpoint   *string           `json:"json_endpoint"`
	PDFDownload    *string           `json:"pdf_download"`
	StatusEndpoint *string           `json:"status_endpoint"`
	StorageURLs    map[string]string `json:"storage_urls"`
}

// IsEmpty reports whether no URL field is populated.
func (u DocumentURLs) IsEmpty() bool {
	return len(u.HTMLFiles) == 0 &&
		u.JSONEndpoint == nil &&
		u.PDFDownload == nil &&
		u.StatusEndpoint == nil &&
		len(u.StorageURLs) == 0
}

// StatusMetadata describes where and how the status request was served.
type StatusMetadata struct {
	Source          string  `json:"source"`
	Environment     string  `json:"environment"`
	APIKeyUsed      *string `json:"api_key_used"`
	RequestSourceIP *string `json:"request_source_ip"`
}

// WebhookMetadata records delivery bookkeeping for a webhook response.
type WebhookMetadata struct {
	WebhookSentAt     time.Time `json:"webhook_sent_at"`
	WebhookURL        *string   `json:"webhook_url"`
	WebhookRetryCount int       `json:"webhook_retry_count"`
	ProcessingTimeMS  *int64    `json:"processing_time_ms"`
}

// ProcessingInfo summarizes request timing for status consumers.
type ProcessingInfo struct {
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	ProcessingTimeMS    *int64     `json:"processing_time_ms"`
	Message             string     `json:"message"`
	Error               *string    `json:"error"`
	RetryCount          int        `json:"retry_count"`
}
