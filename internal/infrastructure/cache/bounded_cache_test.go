// Package cache contains unit tests for the bounded in-process cache.
package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

func TestBoundedCache_SetAndGet(t *testing.T) {
	c := NewBoundedCache(10, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	value, err := c.Get(ctx, "key")

	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestBoundedCache_MissReturnsSentinel(t *testing.T) {
	c := NewBoundedCache(10, zap.NewNop())

	_, err := c.Get(context.Background(), "absent")

	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestBoundedCache_OverwriteDoesNotGrow(t *testing.T) {
	c := NewBoundedCache(10, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "key", []byte("first"), 0))
	assert.NoError(t, c.Set(ctx, "key", []byte("second"), 0))

	value, err := c.Get(ctx, "key")

	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
	assert.Equal(t, 1, c.Len())
}

func TestBoundedCache_FlushesEverythingAtCapacity(t *testing.T) {
	c := NewBoundedCache(100, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 99; i++ {
		assert.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), 0))
	}

	assert.Equal(t, 99, c.Len())

	// The hundredth insert trips the flush and takes the whole store with
	// it, the freshly inserted entry included.
	assert.NoError(t, c.Set(ctx, "key-99", []byte("value"), 0))

	assert.Equal(t, 0, c.Len())

	_, err := c.Get(ctx, "key-99")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	_, err = c.Get(ctx, "key-0")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestBoundedCache_RepopulatesAfterFlush(t *testing.T) {
	c := NewBoundedCache(3, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), 0))
	}

	assert.Equal(t, 0, c.Len())

	assert.NoError(t, c.Set(ctx, "fresh", []byte("value"), 0))

	value, err := c.Get(ctx, "fresh")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestBoundedCache_DeleteAndClear(t *testing.T) {
	c := NewBoundedCache(10, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	assert.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	assert.NoError(t, c.Delete(ctx, "a"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	assert.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestBoundedCache_ConcurrentAccess(t *testing.T) {
	c := NewBoundedCache(50, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				_ = c.Set(ctx, key, []byte("value"), 0)
				_, _ = c.Get(ctx, key)
				_ = c.Delete(ctx, key)
			}
		}(i)
	}

	wg.Wait()

	// The flush policy guarantees the store never holds a full capacity's
	// worth of entries after a Set returns.
	assert.Less(t, c.Len(), 50)
}
