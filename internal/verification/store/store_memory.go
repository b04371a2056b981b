package store

import (
	"context"
	"sync"

	"taxrelay/internal/verification"
)

// MemoryStore is an in-memory RecordStore. Safe for concurrent use.
// Records are stored by value so callers cannot mutate stored state
// through retained pointers.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]verification.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]verification.Record)}
}

func (s *MemoryStore) Get(_ context.Context, requestID string) (*verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RequestID] = *rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, requestID)
	return nil
}
