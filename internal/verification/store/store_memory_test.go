package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrelay/internal/verification"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := &verification.Record{
		RequestID: "req_1",
		Status:    verification.StatusProcessing,
		Taxpayer:  &verification.Taxpayer{Name: verification.Ptr("Jordan Smith")},
	}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, verification.StatusProcessing, got.Status)
	require.NotNil(t, got.Taxpayer)
	assert.Equal(t, "Jordan Smith", *got.Taxpayer.Name)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "req_nope")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &verification.Record{RequestID: "req_1", Status: verification.StatusPending}))
	require.NoError(t, s.Put(ctx, &verification.Record{RequestID: "req_1", Status: verification.StatusCompleted}))

	got, err := s.Get(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, verification.StatusCompleted, got.Status)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &verification.Record{RequestID: "req_1"}))
	require.NoError(t, s.Delete(ctx, "req_1"))

	_, err := s.Get(ctx, "req_1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "req_1"), "deleting a missing record is not an error")
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &verification.Record{RequestID: "req_1", Status: verification.StatusPending}))

	first, err := s.Get(ctx, "req_1")
	require.NoError(t, err)
	first.Status = verification.StatusFailed

	second, err := s.Get(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, verification.StatusPending, second.Status,
		"mutating a returned record must not change stored state")
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := &verification.Record{RequestID: "req_shared"}
			if n%2 == 0 {
				_ = s.Put(ctx, rec)
			} else {
				_, _ = s.Get(ctx, "req_shared")
			}
		}(i)
	}
	wg.Wait()
}
