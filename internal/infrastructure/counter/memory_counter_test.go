// Package counter contains unit tests for the in-process request counter.
package counter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCounter_IncrementAndTotal(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	total, err := c.Total(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)

	value, err := c.Increment(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = c.Increment(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), value)

	total, err = c.Total(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMemoryCounter_ConcurrentIncrements(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				_, _ = c.Increment(ctx)
			}
		}()
	}

	wg.Wait()

	total, err := c.Total(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), total)
}
