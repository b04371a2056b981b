package config

import (
	"os"
	"strconv"
	"time"

	pstrings "taxrelay/pkg/platform/strings"
)

// Config captures everything the server needs from the environment so main
// stays lean. Secrets (webhook signing key, database URL) are injected here
// and never live as literals in the pipeline packages.
type Config struct {
	Addr        string
	BaseURL     string
	Environment string

	// Response pipeline options.
	APIVersion        string
	PartnerName       string // empty = pass canonical responses through
	ValidateResponses bool
	IncludeDebugInfo  bool

	Webhook  WebhookConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
}

// WebhookConfig controls outbound delivery and retry.
type WebhookConfig struct {
	Secret  string
	Timeout time.Duration
	// MaxAttempts caps retries after the initial send. 0 retries
	// indefinitely, reusing the last backoff step.
	MaxAttempts int
}

// RedisConfig mirrors go-redis connection options we tune in production.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects the optional PostgreSQL record source.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig selects the optional delivery audit topic. Empty brokers
// disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:              envOr("TAXRELAY_ADDR", ":8080"),
		BaseURL:           envOr("TAXRELAY_BASE_URL", "https://api.taxrelay.example.com"),
		Environment:       envOr("ENVIRONMENT", "production"),
		APIVersion:        envOr("TAXRELAY_API_VERSION", "2.0"),
		PartnerName:       os.Getenv("TAXRELAY_PARTNER"),
		ValidateResponses: envBool("TAXRELAY_VALIDATE_RESPONSES", true),
		IncludeDebugInfo:  envBool("TAXRELAY_DEBUG_INFO", false),
		Webhook: WebhookConfig{
			Secret:      os.Getenv("WEBHOOK_SECRET"),
			Timeout:     envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxAttempts: envInt("WEBHOOK_MAX_ATTEMPTS", 4),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.SplitAndDedupe(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "taxrelay.webhook.deliveries"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
