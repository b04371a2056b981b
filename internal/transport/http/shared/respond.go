// Package shared holds response helpers used by every HTTP handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dErrors "taxrelay/pkg/domain-errors"
)

// WriteJSON serializes v with the given status. Encoding failures are
// unrecoverable at this point; the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the JSON error shape served to clients.
type ErrorBody struct {
	Error     string    `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteError maps a coded domain error to its HTTP status and serves the
// error body. Uncoded errors become 500s with a generic message so
// internals never leak.
func WriteError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	var derr *dErrors.Error
	if errors.As(err, &derr) {
		status = dErrors.ToHTTPStatus(derr.Code)
		message = derr.Message
	}
	WriteJSON(w, status, ErrorBody{
		Error:     message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}
