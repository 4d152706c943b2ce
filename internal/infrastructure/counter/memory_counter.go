package counter

import (
	"context"
	"sync/atomic"

	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// MemoryCounter is the in-process fallback used when Redis is disabled. The
// count resets on restart.
type MemoryCounter struct {
	total atomic.Int64
}

// NewMemoryCounter returns an in-process request counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

var _ ports.RequestCounter = (*MemoryCounter)(nil)

func (c *MemoryCounter) Increment(_ context.Context) (int64, error) {
	return c.total.Add(1), nil
}

func (c *MemoryCounter) Total(_ context.Context) (int64, error) {
	return c.total.Load(), nil
}
