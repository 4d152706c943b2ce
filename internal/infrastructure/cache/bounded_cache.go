// Package cache provides the query-cache implementations: the in-process
// bounded cache the pipeline uses by default, and an optional Redis-backed
// cache for multi-instance deployments.
package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// DefaultCapacity is the flush threshold used when none is configured.
const DefaultCapacity = 100

// BoundedCache is a thread-safe map with a full-flush eviction policy: every
// Set is unconditional, and once the entry count reaches the capacity the
// entire store is discarded, including the entry just inserted. There is no
// per-entry TTL; staleness is corrected only by explicit Delete/Clear calls
// from mutating operations. The check and the flush happen under one lock, so
// a concurrent reader never observes a partially cleared store.
type BoundedCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	capacity int
	logger   *zap.Logger
}

// NewBoundedCache creates a bounded cache flushing at the given capacity.
func NewBoundedCache(capacity int, logger *zap.Logger) *BoundedCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &BoundedCache{
		entries:  make(map[string][]byte),
		capacity: capacity,
		logger:   logger,
	}
}

func (b *BoundedCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "BoundedCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	b.mu.Lock()
	value, found := b.entries[key]
	b.mu.Unlock()

	span.SetAttributes(attribute.Bool("cache.hit", found))

	if !found {
		b.logger.Debug("cache miss", zap.String("key", key))
		return nil, ports.ErrCacheMiss
	}

	b.logger.Debug("cache hit", zap.String("key", key))

	return value, nil
}

// Set stores the value unconditionally; ttl is ignored. Reaching the capacity
// flushes everything, forcing subsequent lookups through the slow path until
// the cache repopulates.
func (b *BoundedCache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "BoundedCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
	)

	b.mu.Lock()
	b.entries[key] = value
	flushed := len(b.entries) >= b.capacity

	if flushed {
		b.entries = make(map[string][]byte)
	}
	b.mu.Unlock()

	if flushed {
		span.SetAttributes(attribute.Bool("cache.flushed", true))
		b.logger.Info("cache reached capacity, flushed",
			zap.Int("capacity", b.capacity))
	}

	return nil
}

func (b *BoundedCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "BoundedCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()

	b.logger.Debug("cache delete", zap.String("key", key))

	return nil
}

func (b *BoundedCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "BoundedCache.Clear")

	defer span.End()

	b.mu.Lock()
	b.entries = make(map[string][]byte)
	b.mu.Unlock()

	b.logger.Info("cache cleared")

	return nil
}

// Len reports the current entry count. Intended for tests and diagnostics.
func (b *BoundedCache) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}
