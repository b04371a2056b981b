package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxrelay/internal/audit"
	"taxrelay/internal/platform/config"
	"taxrelay/internal/platform/httpserver"
	"taxrelay/internal/platform/logger"
	"taxrelay/internal/platform/metrics"
	platformredis "taxrelay/internal/platform/redis"
	"taxrelay/internal/response/builder"
	rhandler "taxrelay/internal/response/handler"
	"taxrelay/internal/response/partner"
	httptransport "taxrelay/internal/transport/http"
	"taxrelay/internal/verification/store"
	"taxrelay/internal/webhook"
	"taxrelay/internal/webhook/retry"
)

// main wires dependencies and owns the server lifecycle. Pipeline logic
// lives in the internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record store: Postgres when configured, then Redis, then in-memory.
	var records store.RecordStore = store.NewMemoryStore()
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		records = pg
		log.Info("record store ready", "backend", "postgres")
	} else if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		records = store.NewRedisStore(client.Client)
		log.Info("record store ready", "backend", "redis")
	} else {
		log.Info("record store ready", "backend", "memory")
	}

	sender := webhook.NewSender(cfg.Webhook.Secret, cfg.APIVersion,
		webhook.WithTimeout(cfg.Webhook.Timeout),
		webhook.WithLogger(log))

	pipelineOpts := []rhandler.Option{
		rhandler.WithLogger(log),
		rhandler.WithMetrics(m),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic,
			audit.WithLogger(log))
		if err != nil {
			return fmt.Errorf("starting audit publisher: %w", err)
		}
		defer publisher.Close()
		pipelineOpts = append(pipelineOpts, rhandler.WithAuditPublisher(publisher))
		log.Info("delivery audit enabled", "topic", cfg.Kafka.Topic)
	}

	pipeline := rhandler.New(
		rhandler.Config{
			ValidateResponses: cfg.ValidateResponses,
			IncludeDebugInfo:  cfg.IncludeDebugInfo,
			PartnerName:       cfg.PartnerName,
		},
		builder.New(builder.WithAPIVersion(cfg.APIVersion)),
		partner.NewRegistry(cfg.BaseURL),
		sender,
		pipelineOpts...,
	)

	// Retries re-read the record so each attempt sees the freshest state
	// and the rebuilt payload reports the attempt number.
	scheduler := retry.New(
		func(ctx context.Context, requestID string, attempt int) error {
			rec, err := records.Get(ctx, requestID)
			if err != nil {
				return fmt.Errorf("refetching record: %w", err)
			}
			rec.WebhookRetryCount = attempt
			delivery, err := pipeline.HandleWebhook(ctx, rec)
			if err != nil {
				return err
			}
			if !delivery.Success {
				return delivery.Err
			}
			return nil
		},
		retry.WithMaxAttempts(cfg.Webhook.MaxAttempts),
		retry.WithLogger(log),
	)
	defer scheduler.Close()

	api := httptransport.New(
		httptransport.Config{APIVersion: cfg.APIVersion, Environment: cfg.Environment},
		records, pipeline, scheduler, log, m)
	router := chi.NewRouter()
	api.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting taxrelay", "addr", cfg.Addr, "partner", cfg.PartnerName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
