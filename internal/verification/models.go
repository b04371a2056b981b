// Package verification defines the canonical record describing one
// tax/employment verification request. Records are produced upstream by
// collection and parsing processes and arrive loosely typed; every field
// besides request_id is optional and the response pipeline substitutes
// defaults rather than failing.
package verification

import "time"

// Status is the lifecycle state of a verification request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the canonical upstream description of one verification request.
// RequestID is immutable once assigned and is the join key across every
// response shape derived from the record.
type Record struct {
	RequestID       string            `json:"request_id"`
	Status          Status            `json:"status,omitempty"`
	PercentComplete int               `json:"percent_complete,omitempty"`
	Taxpayer        *Taxpayer         `json:"taxpayer,omitempty"`
	Transcripts     []Transcript      `json:"transcripts,omitempty"`
	TranscriptURLs  map[string]string `json:"transcript_urls,omitempty"`
	StorageURLs     map[string]string `json:"storage_urls,omitempty"`
	CreatedAt       time.Time         `json:"created_at,omitzero"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Message         string            `json:"message,omitempty"`
	Error           string            `json:"error,omitempty"`
	RetryCount      int               `json:"retry_count,omitempty"`
	ProcessingTime  *int64            `json:"processing_time_ms,omitempty"`

	WebhookURL        string `json:"webhook_url,omitempty"`
	WebhookRetryCount int    `json:"webhook_retry_count,omitempty"`

	Source      string `json:"source,omitempty"`
	SourceIP    string `json:"source_ip,omitempty"`
	APIKeyUsed  string `json:"api_key_used,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Taxpayer identifies the subject of a verification request. All fields are
// nullable on the wire; list fields default to empty, never null.
type Taxpayer struct {
	Name         *string  `json:"name"`
	SSNLastFour  *string  `json:"ssn_last_four"`
	TaxYears     []string `json:"tax_years"`
	TaxForms     []string `json:"tax_forms"`
	FilingStatus *string  `json:"filing_status"`
	Address      *string  `json:"address"`
}

// Transcript is one parsed IRS transcript document. TaxYear is empty when
// the parser could not determine it; aggregation buckets those under the
// "unknown" sentinel.
type Transcript struct {
	SourceFile *string            `json:"source_file"`
	TaxYear    string             `json:"tax_year"`
	Forms      []Form             `json:"forms"`
	Metadata   TranscriptMetadata `json:"metadata"`
	IncomeData *IncomeData        `json:"income_data"`
}

// TranscriptMetadata carries parser bookkeeping for one transcript.
type TranscriptMetadata struct {
	TrackingNumber *string   `json:"tracking_number"`
	TaxPeriod      *string   `json:"tax_period"`
	ProcessedAt    time.Time `json:"processed_at"`
	FileSizeBytes  *int64    `json:"file_size_bytes"`
	PageCount      *int      `json:"page_count"`
}

// Form is a single tax form found on a transcript (W-2, 1099, 1040, ...).
type Form struct {
	Type        string   `json:"type"`
	Description *string  `json:"description"`
	Employer    *string  `json:"employer"`
	Payer       *string  `json:"payer"`
	Amount      *float64 `json:"amount"`
	TaxYear     *string  `json:"tax_year"`
}

// IncomeData holds per-year income figures parsed from a transcript.
// Every field is a pointer: absence means "not on the transcript" and is
// never collapsed to zero.
type IncomeData struct {
	AdjustedGrossIncome *float64 `json:"adjusted_gross_income"`
	WagesSalaries       *float64 `json:"wages_salaries"`
	BusinessIncome      *float64 `json:"business_income"`
	CapitalGains        *float64 `json:"capital_gains"`
	OtherIncome         *float64 `json:"other_income"`
	TotalIncome         *float64 `json:"total_income"`
	RefundAmount        *float64 `json:"refund_amount"`
	AmountOwed          *float64 `json:"amount_owed"`
}

// Ptr returns a pointer to v. Convenience for building records with the
// nullable fields above.
func Ptr[T any](v T) *T { return &v }
