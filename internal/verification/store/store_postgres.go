package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxrelay/internal/verification"
)

// PostgresStore is a durable RecordStore backed by PostgreSQL. Records
// arrive loosely typed and evolve upstream, so they are stored as JSONB
// documents rather than a column per field.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed record store. The pool
// lifecycle is managed externally.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the records table if it does not exist. Called once
// at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS verification_records (
			request_id TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensuring records schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID string) (*verification.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM verification_records WHERE request_id = $1`,
		requestID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) Put(ctx context.Context, rec *verification.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.RequestID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO verification_records (request_id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (request_id) DO UPDATE
		SET record = EXCLUDED.record, updated_at = now()`,
		rec.RequestID, data)
	if err != nil {
		return fmt.Errorf("storing record %s: %w", rec.RequestID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, requestID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM verification_records WHERE request_id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", requestID, err)
	}
	return nil
}
