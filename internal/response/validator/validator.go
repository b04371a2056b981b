// Package validator checks the structural completeness of canonical
// responses. Findings are advisory: callers log them and still return the
// response. The only hard errors are the two universal required fields
// (request_id, timestamp) and the per-variant required field (status for
// status responses, event_type for webhooks).
package validator

import (
	"fmt"

	"taxrelay/internal/response/schema"
)

// Validate inspects a canonical response and reports errors (structural
// incompleteness) and warnings (missing optional sections). An unknown
// response type is a warning, never an error.
func Validate(resp schema.Response) schema.ValidationResult {
	var errors, warnings []string

	env := resp.Env()
	if env.RequestID == "" {
		errors = append(errors, "Missing required field: request_id")
	}
	if env.Timestamp.IsZero() {
		errors = append(errors, "Missing required field: timestamp")
	}
	if env.APIVersion == "" {
		warnings = append(warnings, "Missing api_version field")
	}

	switch r := resp.(type) {
	case *schema.StatusResponse:
		if r.Status == "" {
			errors = append(errors, "Status response missing 'status' field")
		}
		if r.PercentComplete == nil {
			warnings = append(warnings, "Status response missing 'percent_complete' field")
		}
		if r.ProcessingInfo.UpdatedAt.IsZero() {
			warnings = append(warnings, "Status response missing 'processing_info' section")
		}
	case *schema.WebhookResponse:
		if r.EventType == "" {
			errors = append(errors, "Webhook response missing 'event_type' field")
		}
		if r.Metadata.WebhookSentAt.IsZero() {
			warnings = append(warnings, "Webhook response missing webhook timestamp")
		}
	case *schema.DocumentResponse:
		if len(r.Transcripts) == 0 {
			warnings = append(warnings, "Document response has no transcripts")
		}
		if r.URLs.IsEmpty() {
			warnings = append(warnings, "Document response missing 'urls' section")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown response type: %s", env.ResponseType))
	}

	return schema.ValidationResult{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}
