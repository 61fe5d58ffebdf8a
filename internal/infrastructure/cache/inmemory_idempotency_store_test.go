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
	t.Run("first mark wins, second is rejected", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		ok, err := store.MarkProcessed(context.Background(), "req-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkProcessed(context.Background(), "req-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired ids can be marked again", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		ok, err := store.MarkProcessed(context.Background(), "req-2", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = store.MarkProcessed(context.Background(), "req-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("concurrent marks yield exactly one winner", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		const workers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.MarkProcessed(context.Background(), "req-3", time.Minute)
				require.NoError(t, err)
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	processed, err := store.IsProcessed(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(context.Background(), "req-4", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(context.Background(), "req-4")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	_, err := store.MarkProcessed(context.Background(), "req-5", time.Millisecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(context.Background(), "req-6", time.Hour)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
