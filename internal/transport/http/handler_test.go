package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrelay/internal/response/builder"
	rhandler "taxrelay/internal/response/handler"
	"taxrelay/internal/response/partner"
	"taxrelay/internal/response/schema"
	"taxrelay/internal/transport/http/shared"
	"taxrelay/internal/verification"
	"taxrelay/internal/verification/store"
	"taxrelay/internal/webhook"
	"taxrelay/pkg/testutil"
)

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent int
}

func (s *stubSender) Send(context.Context, string, string, []byte) (*webhook.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	if s.err != nil {
		return nil, s.err
	}
	return &webhook.Result{Status: 200, StatusText: "OK"}, nil
}

type stubScheduler struct {
	scheduled []string
	canceled  []string
}

func (s *stubScheduler) Schedule(requestID string) bool {
	s.scheduled = append(s.scheduled, requestID)
	return true
}

func (s *stubScheduler) Cancel(requestID string) {
	s.canceled = append(s.canceled, requestID)
}

type testAPI struct {
	router    chi.Router
	records   store.RecordStore
	sender    *stubSender
	scheduler *stubScheduler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	records := store.NewMemoryStore()
	sender := &stubSender{}
	scheduler := &stubScheduler{}
	pipeline := rhandler.New(
		rhandler.Config{ValidateResponses: true},
		builder.New(),
		partner.NewRegistry("https://api.example.com"),
		sender,
	)
	h := New(
		Config{APIVersion: "2.0", Environment: "test"},
		records, pipeline, scheduler,
		slog.New(slog.DiscardHandler), nil)

	router := chi.NewRouter()
	h.Register(router)
	return &testAPI{router: router, records: records, sender: sender, scheduler: scheduler}
}

func (a *testAPI) seed(t *testing.T, rec *verification.Record) {
	t.Helper()
	require.NoError(t, a.records.Put(context.Background(), rec))
}

func TestStatusEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, &verification.Record{
		RequestID:       "req_1",
		Status:          verification.StatusProcessing,
		PercentComplete: 40,
	})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/status/req_1", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "2.0", rr.Header().Get("X-API-Version"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	resp := testutil.UnmarshalResponse[schema.StatusResponse](t, rr)
	assert.Equal(t, "req_1", resp.RequestID)
	assert.Equal(t, verification.StatusProcessing, resp.Status)
	require.NotNil(t, resp.PercentComplete)
	assert.Equal(t, 40, *resp.PercentComplete)
}

func TestStatusEndpoint_UnknownRequest(t *testing.T) {
	api := newTestAPI(t)

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/status/req_nope", nil))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
	body := testutil.UnmarshalResponse[shared.ErrorBody](t, rr)
	assert.Equal(t, "Request not found", body.Error)
	assert.Equal(t, "req_nope", body.RequestID)
	assert.False(t, body.Timestamp.IsZero())
}

func TestTranscriptJSONEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, &verification.Record{
		RequestID: "req_1",
		Status:    verification.StatusCompleted,
		Transcripts: []verification.Transcript{
			{TaxYear: "2023", Forms: []verification.Form{{Type: "W-2"}}},
		},
	})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/transcripts/req_1/json", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[schema.DocumentResponse](t, rr)
	assert.Equal(t, schema.TypeDocument, resp.ResponseType)
	assert.Equal(t, 1, resp.Documents.TotalCount)
	assert.Nil(t, resp.URLs.JSONEndpoint, "document responses carry no endpoints")
}

func TestTranscriptHTMLEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, &verification.Record{
		RequestID: "req_1",
		TranscriptURLs: map[string]string{
			"page_2": "https://cdn.example.com/2.html",
			"page_1": "https://cdn.example.com/1.html",
		},
	})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/transcripts/req_1/html", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	listing := testutil.UnmarshalResponse[htmlListing](t, rr)
	assert.Equal(t, "req_1", listing.RequestID)
	assert.Equal(t, 2, listing.TotalFiles)
	require.Len(t, listing.HTMLURLs, 2)
	assert.Equal(t, 1, listing.HTMLURLs[0].FileNumber)
	assert.Equal(t, "page_1", listing.HTMLURLs[0].FileKey)
	assert.Equal(t, "https://cdn.example.com/1.html", listing.HTMLURLs[0].URL)
	assert.Equal(t, "IRS Wage and Income Transcript - Page 1", listing.HTMLURLs[0].Description)
	assert.Equal(t, "public", listing.HTMLURLs[0].AccessType)
	assert.Equal(t, "text/html", listing.HTMLURLs[0].ContentType)
}

func TestPutRecordEndpoint(t *testing.T) {
	api := newTestAPI(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/records/req_new", map[string]any{
		"status":           "processing",
		"percent_complete": 25,
	})
	req.Header.Set("X-API-Key", "sk_live_abcd1234")
	rr := testutil.DoRequest(api.router, req)

	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rec, err := api.records.Get(context.Background(), "req_new")
	require.NoError(t, err)
	assert.Equal(t, verification.StatusProcessing, rec.Status)
	assert.Equal(t, "sk_live_abcd1234", rec.APIKeyUsed)
	assert.Equal(t, "test", rec.Environment)
	assert.NotEmpty(t, rec.SourceIP)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestPutRecordEndpoint_MismatchedID(t *testing.T) {
	api := newTestAPI(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/records/req_a", map[string]any{
		"request_id": "req_b",
	})
	rr := testutil.DoRequest(api.router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestPutRecordEndpoint_InvalidBody(t *testing.T) {
	api := newTestAPI(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/records/req_a", nil)
	rr := testutil.DoRequest(api.router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestNotifyEndpoint_Delivers(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, &verification.Record{
		RequestID:  "req_1",
		Status:     verification.StatusCompleted,
		WebhookURL: "https://partner.example.com/hook",
	})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/records/req_1/notify", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	result := testutil.UnmarshalResponse[notifyResult](t, rr)
	assert.True(t, result.Delivered)
	assert.False(t, result.RetryScheduled)
	assert.Equal(t, 1, api.sender.sent)
	assert.Equal(t, []string{"req_1"}, api.scheduler.canceled, "fresh trigger cancels pending retries")
	assert.Empty(t, api.scheduler.scheduled)
}

func TestNotifyEndpoint_FailureSchedulesRetry(t *testing.T) {
	api := newTestAPI(t)
	api.sender.err = errors.New("endpoint returned 503")
	api.seed(t, &verification.Record{
		RequestID:  "req_1",
		WebhookURL: "https://partner.example.com/hook",
	})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/records/req_1/notify", nil))

	testutil.AssertStatus(t, rr, http.StatusBadGateway)
	result := testutil.UnmarshalResponse[notifyResult](t, rr)
	assert.False(t, result.Delivered)
	assert.True(t, result.RetryScheduled)
	assert.Equal(t, []string{"req_1"}, api.scheduler.scheduled)
}

func TestNotifyEndpoint_NoWebhookURL(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, &verification.Record{RequestID: "req_1"})

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/records/req_1/notify", nil))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, 0, api.sender.sent)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/health", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "status", "ok")
	testutil.AssertJSONContains(t, rr, "environment", "test")
}

func TestDocsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rr := testutil.DoRequest(api.router, testutil.NewJSONRequest(t, http.MethodGet, "/api/docs", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "api_version", "2.0")
}

func TestRequestIDHeaderHonored(t *testing.T) {
	api := newTestAPI(t)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	rr := testutil.DoRequest(api.router, req)

	assert.Equal(t, "trace-me", rr.Header().Get("X-Request-ID"))
}
