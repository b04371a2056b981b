// Package http serves the partner-facing API: record ingestion, status
// polling, transcript retrieval, and the webhook delivery trigger.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taxrelay/internal/platform/metrics"
	"taxrelay/internal/platform/middleware"
	rhandler "taxrelay/internal/response/handler"
	"taxrelay/internal/transport/http/shared"
	"taxrelay/internal/verification"
	"taxrelay/internal/verification/store"
	dErrors "taxrelay/pkg/domain-errors"
)

// Pipeline builds and delivers responses for verification records.
type Pipeline interface {
	HandleStatus(ctx context.Context, rec *verification.Record) (any, error)
	HandleDocument(ctx context.Context, rec *verification.Record) (any, error)
	HandleWebhook(ctx context.Context, rec *verification.Record) (*rhandler.Delivery, error)
}

// RetryScheduler queues redelivery for failed webhook sends.
type RetryScheduler interface {
	Schedule(requestID string) bool
	Cancel(requestID string)
}

// Config carries the handler's environment-derived settings.
type Config struct {
	APIVersion  string
	Environment string
}

// Handler serves the HTTP API.
type Handler struct {
	cfg       Config
	records   store.RecordStore
	pipeline  Pipeline
	scheduler RetryScheduler
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates the API handler. scheduler may be nil when webhook delivery
// is disabled.
func New(
	cfg Config,
	records store.RecordStore,
	pipeline Pipeline,
	scheduler RetryScheduler,
	logger *slog.Logger,
	m *metrics.Metrics) *Handler {
	return &Handler{
		cfg:       cfg,
		records:   records,
		pipeline:  pipeline,
		scheduler: scheduler,
		logger:    logger,
		metrics:   m,
	}
}

// Register registers the API routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(30 * time.Second))
	api.Use(h.versionHeader)

	api.Get("/api/status/{requestID}", h.handleStatus)
	api.Get("/api/transcripts/{requestID}/json", h.handleTranscriptJSON)
	api.Get("/api/transcripts/{requestID}/html", h.handleTranscriptHTML)
	api.Put("/api/records/{requestID}", h.handlePutRecord)
	api.Post("/api/records/{requestID}/notify", h.handleNotify)
	api.Get("/api/health", h.handleHealth)
	api.Get("/api/docs", h.handleDocs)

	r.Mount("/", api)
	r.Handle("/metrics", promhttp.Handler())
}

func (h *Handler) versionHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", h.cfg.APIVersion)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, ok := h.fetchRecord(w, r)
	if !ok {
		return
	}

	payload, err := h.pipeline.HandleStatus(ctx, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "building status response",
			"request_id", rec.RequestID,
			"error", err)
		shared.WriteError(w, rec.RequestID, dErrors.New(dErrors.CodeInternal, "failed to build response"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleTranscriptJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, ok := h.fetchRecord(w, r)
	if !ok {
		return
	}

	payload, err := h.pipeline.HandleDocument(ctx, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "building document response",
			"request_id", rec.RequestID,
			"error", err)
		shared.WriteError(w, rec.RequestID, dErrors.New(dErrors.CodeInternal, "failed to build response"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, payload)
}

// htmlFile describes one rendered transcript page in the listing served
// from the html endpoint.
type htmlFile struct {
	FileNumber  int    `json:"file_number"`
	FileKey     string `json:"file_key"`
	URL         string `json:"url"`
	Description string `json:"description"`
	AccessType  string `json:"access_type"`
	ContentType string `json:"content_type"`
}

type htmlListing struct {
	RequestID  string     `json:"request_id"`
	HTMLURLs   []htmlFile `json:"html_urls"`
	AccessNote string     `json:"access_note"`
	TotalFiles int        `json:"total_files"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (h *Handler) handleTranscriptHTML(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.fetchRecord(w, r)
	if !ok {
		return
	}

	keys := make([]string, 0, len(rec.TranscriptURLs))
	for k := range rec.TranscriptURLs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	files := make([]htmlFile, 0, len(keys))
	for i, key := range keys {
		files = append(files, htmlFile{
			FileNumber:  i + 1,
			FileKey:     key,
			URL:         rec.TranscriptURLs[key],
			Description: fmt.Sprintf("IRS Wage and Income Transcript - Page %d", i+1),
			AccessType:  "public",
			ContentType: "text/html",
		})
	}

	shared.WriteJSON(w, http.StatusOK, htmlListing{
		RequestID:  rec.RequestID,
		HTMLURLs:   files,
		AccessNote: "URLs are publicly accessible and do not require authentication",
		TotalFiles: len(files),
		Timestamp:  time.Now().UTC(),
	})
}

func (h *Handler) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "requestID")

	var rec verification.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.logger.WarnContext(ctx, "invalid record body",
			"request_id", requestID,
			"error", err)
		shared.WriteError(w, requestID, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if rec.RequestID != "" && rec.RequestID != requestID {
		shared.WriteError(w, requestID, dErrors.New(dErrors.CodeBadRequest, "request_id does not match path"))
		return
	}
	rec.RequestID = requestID

	// Stamp request metadata for the masked status view.
	if rec.SourceIP == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			rec.SourceIP = host
		} else {
			rec.SourceIP = r.RemoteAddr
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		rec.APIKeyUsed = key
	}
	if rec.Environment == "" {
		rec.Environment = h.cfg.Environment
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if err := h.records.Put(ctx, &rec); err != nil {
		h.logger.ErrorContext(ctx, "storing record",
			"request_id", requestID,
			"error", err)
		shared.WriteError(w, requestID, dErrors.New(dErrors.CodeInternal, "failed to store record"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type notifyResult struct {
	RequestID      string    `json:"request_id"`
	Delivered      bool      `json:"delivered"`
	RetryScheduled bool      `json:"retry_scheduled"`
	Timestamp      time.Time `json:"timestamp"`
}

func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, ok := h.fetchRecord(w, r)
	if !ok {
		return
	}

	// A fresh trigger supersedes any pending retry for this record.
	if h.scheduler != nil {
		h.scheduler.Cancel(rec.RequestID)
	}

	delivery, err := h.pipeline.HandleWebhook(ctx, rec)
	if err != nil {
		if errors.Is(err, rhandler.ErrNoWebhookURL) {
			shared.WriteError(w, rec.RequestID, dErrors.New(dErrors.CodeBadRequest, "record has no webhook url"))
			return
		}
		h.logger.ErrorContext(ctx, "webhook delivery error",
			"request_id", rec.RequestID,
			"error", err)
		shared.WriteError(w, rec.RequestID, dErrors.New(dErrors.CodeInternal, "webhook delivery failed"))
		return
	}

	result := notifyResult{
		RequestID: rec.RequestID,
		Delivered: delivery.Success,
		Timestamp: time.Now().UTC(),
	}
	if delivery.Success {
		shared.WriteJSON(w, http.StatusOK, result)
		return
	}

	if h.scheduler != nil && h.scheduler.Schedule(rec.RequestID) {
		result.RetryScheduled = true
		h.metrics.IncRetriesScheduled()
	}
	shared.WriteJSON(w, http.StatusBadGateway, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"environment": h.cfg.Environment,
		"api_version": h.cfg.APIVersion,
		"timestamp":   time.Now().UTC(),
	})
}

func (h *Handler) handleDocs(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"api_version": h.cfg.APIVersion,
		"endpoints": map[string]string{
			"GET /api/status/{request_id}":           "Current verification status with progress and metadata",
			"GET /api/transcripts/{request_id}/json": "Parsed transcript data as structured JSON",
			"GET /api/transcripts/{request_id}/html": "Listing of rendered transcript HTML files",
			"PUT /api/records/{request_id}":          "Upsert a verification record (internal)",
			"POST /api/records/{request_id}/notify":  "Trigger webhook delivery for a record (internal)",
			"GET /api/health":                        "Service health",
		},
		"authentication": "X-API-Key header, recorded for audit masking",
	})
}

// fetchRecord loads the path's record, serving the not-found body when it
// is missing. The bool reports whether the caller should proceed.
func (h *Handler) fetchRecord(w http.ResponseWriter, r *http.Request) (*verification.Record, bool) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "requestID")

	rec, err := h.records.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.IncRecordFetches("miss")
			shared.WriteError(w, requestID, dErrors.New(dErrors.CodeNotFound, "Request not found"))
			return nil, false
		}
		h.metrics.IncRecordFetches("error")
		h.logger.ErrorContext(ctx, "fetching record",
			"request_id", requestID,
			"error", err)
		shared.WriteError(w, requestID, dErrors.New(dErrors.CodeUnavailable, "record store unavailable"))
		return nil, false
	}
	h.metrics.IncRecordFetches("hit")
	return rec, true
}
