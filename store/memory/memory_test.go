package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopscout/agent/store"
)

func TestStoreBasicOperations(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	cp := &store.Checkpoint{
		SessionID:   "sess-1",
		State:       map[string]any{"category": "laptop", "is_valid_page": true},
		PendingNode: "collect_user_criteria",
		UpdatedAt:   time.Now(),
		Version:     1,
	}

	require.NoError(t, s.Put(ctx, cp))

	loaded, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.SessionID)
	assert.Equal(t, "collect_user_criteria", loaded.PendingNode)
	assert.Equal(t, "laptop", loaded.State["category"])
	assert.Equal(t, 1, loaded.Version)
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	cp := &store.Checkpoint{
		SessionID: "sess-1",
		State:     map[string]any{"a": 1},
	}
	require.NoError(t, s.Put(ctx, cp))

	// Mutating the caller's map must not leak into the store.
	cp.State["a"] = 99

	loaded, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.State["a"])

	// Mutating a loaded copy must not affect later reads.
	loaded.State["a"] = 42
	again, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.State["a"])
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &store.Checkpoint{SessionID: "sess-1", State: map[string]any{}}))
	require.NoError(t, s.Delete(ctx, "sess-1"))

	_, err := s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, "sess-1"))
}

func TestStoreConcurrentSessions(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			_ = s.Put(ctx, &store.Checkpoint{
				SessionID: id,
				State:     map[string]any{"n": n},
				Version:   n,
			})
			_, _ = s.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, s.Len())
}
