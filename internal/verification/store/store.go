// Package store persists verification records. Three implementations
// share one interface: in-memory for tests and single-node development,
// Redis for shared caching deployments, Postgres for durable storage.
package store

import (
	"context"

	"taxrelay/internal/verification"
	"taxrelay/pkg/platform/sentinel"
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = sentinel.ErrNotFound

// RecordStore persists verification records keyed by request id.
type RecordStore interface {
	// Get returns the record for requestID, or ErrNotFound.
	Get(ctx context.Context, requestID string) (*verification.Record, error)
	// Put inserts or replaces the record under its request id.
	Put(ctx context.Context, rec *verification.Record) error
	// Delete removes the record. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, requestID string) error
}
