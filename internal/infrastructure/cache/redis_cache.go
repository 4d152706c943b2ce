package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

// keyPrefix namespaces the cache's entries within a shared Redis database.
// Clear deletes by this prefix, so it must not cover keys owned by other
// components, in particular the request counter under "suninfo:requests:".
const keyPrefix = "suninfo:cache:"

// RedisCache is the distributed alternative to BoundedCache for deployments
// running more than one instance. It honors the TTL passed to Set; a zero TTL
// stores the entry without expiry, matching the bounded cache's semantics.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache verifies connectivity and returns the cache, or an error when
// the server is unreachable.
func NewRedisCache(client *redis.Client, logger *zap.Logger) (*RedisCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()
	result, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))

		r.logger.Debug("cache miss",
			zap.String("key", key),
			zap.Duration("duration", duration))

		return nil, ports.ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache get error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))

	r.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return result, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
	)

	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		span.RecordError(err)

		r.logger.Error("cache set error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache set", zap.String("key", key))

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		span.RecordError(err)

		r.logger.Error("cache delete error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	return nil
}

// Clear removes this service's entries only, by prefix scan, so other tenants
// of the Redis database are untouched.
func (r *RedisCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Clear")

	defer span.End()

	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 200).Result()

		if err != nil {
			span.RecordError(err)
			r.logger.Error("cache clear scan error", zap.Error(err))

			return err
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				span.RecordError(err)
				return err
			}
		}

		cursor = next

		if cursor == 0 {
			break
		}
	}

	r.logger.Info("cache cleared")

	return nil
}

// Close closes the underlying Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
