package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taxrelay/internal/verification"
)

// Redis key prefix for verification records.
const recordKeyPrefix = "vreq:"

// RedisStore is a Redis-backed RecordStore. Records are stored as JSON
// blobs keyed by request id. Recommended for deployments where multiple
// instances share record state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTL expires records after d. Zero keeps them until deleted.
func WithTTL(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewRedisStore constructs a Redis-backed record store. The client
// lifecycle is managed externally.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (*verification.Record, error) {
	data, err := s.client.Get(ctx, recordKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", requestID, err)
	}
	var rec verification.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", requestID, err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *verification.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.RequestID, err)
	}
	return s.client.Set(ctx, recordKeyPrefix+rec.RequestID, data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, requestID string) error {
	return s.client.Del(ctx, recordKeyPrefix+requestID).Err()
}
