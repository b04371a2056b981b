// Package webhook delivers signed notification payloads to partner
// endpoints. Every request body is HMAC-signed with the shared secret so
// receivers can authenticate the sender; concurrent sends for the same
// request id are serialized so retries never interleave with a live
// attempt.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 30 * time.Second

// Result records the outcome of a successful delivery attempt.
type Result struct {
	Status     int       `json:"status"`
	StatusText string    `json:"status_text"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sender posts signed payloads to webhook endpoints. Safe for concurrent
// use; sends for the same request id are serialized through a
// singleflight group.
type Sender struct {
	client     *http.Client
	secret     string
	apiVersion string
	logger     *slog.Logger
	now        func() time.Time
	group      singleflight.Group
}

type SenderOption func(*Sender)

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying client. Tests use this to stub
// transport behavior.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithClock injects the timestamp clock.
func WithClock(now func() time.Time) SenderOption {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSender constructs a Sender signing with secret and stamping
// apiVersion into the version header.
func NewSender(secret, apiVersion string, opts ...SenderOption) *Sender {
	s := &Sender{
		client:     &http.Client{Timeout: defaultTimeout},
		secret:     secret,
		apiVersion: apiVersion,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signature computes the hex HMAC-SHA256 of body under secret. Receivers
// recompute it over the exact bytes they read off the wire.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send posts body to url with signature headers. Sends sharing a request
// id run one at a time; a caller arriving while another send for the same
// id is in flight receives that send's result. Any non-2xx status is an
// error.
func (s *Sender) Send(ctx context.Context, requestID, url string, body []byte) (*Result, error) {
	v, err, _ := s.group.Do(requestID, func() (any, error) {
		return s.send(ctx, requestID, url, body)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Sender) send(ctx context.Context, requestID, url string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building webhook request: %w", err)
	}

	sentAt := s.now()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Signature(s.secret, body))
	req.Header.Set("X-Timestamp", sentAt.Format(time.RFC3339))
	req.Header.Set("X-Version", s.apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("webhook delivery rejected",
			"request_id", requestID,
			"url", url,
			"status", resp.StatusCode)
		return nil, fmt.Errorf("webhook endpoint returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	s.logger.Info("webhook delivered",
		"request_id", requestID,
		"url", url,
		"status", resp.StatusCode)

	return &Result{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Timestamp:  sentAt,
	}, nil
}
