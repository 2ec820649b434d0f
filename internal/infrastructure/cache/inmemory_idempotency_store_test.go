package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("first mark succeeds", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("second mark reports already processed", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("distinct delivery IDs do not collide", func(t *testing.T) {
		marked, err := store.MarkProcessed(ctx, "delivery-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, marked)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "delivery-1", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, processed, "expired delivery should no longer count as processed")

	marked, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, marked, "expired delivery should be markable again")
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	const goroutines = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := store.MarkProcessed(ctx, "contested", time.Hour)
			require.NoError(t, err)
			if marked {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one goroutine should win the mark")
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
