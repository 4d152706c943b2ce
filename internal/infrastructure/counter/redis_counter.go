// Package counter tracks how many lookups the service has handled. Counting
// is best effort: a counter failure is logged and never fails the request
// being counted.
package counter

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
)

const counterKey = "suninfo:requests:total"

// RedisCounter accumulates the request total in Redis so the count survives
// restarts and spans instances.
type RedisCounter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCounter returns a Redis-backed request counter.
func NewRedisCounter(client *redis.Client, logger *zap.Logger) *RedisCounter {
	return &RedisCounter{
		client: client,
		logger: logger,
	}
}

var _ ports.RequestCounter = (*RedisCounter)(nil)

func (c *RedisCounter) Increment(ctx context.Context) (int64, error) {
	tracer := otel.Tracer("counter")
	ctx, span := tracer.Start(ctx, "Counter.Increment")

	defer span.End()

	total, err := c.client.Incr(ctx, counterKey).Result()

	if err != nil {
		span.RecordError(err)

		c.logger.Error("request counter increment error", zap.Error(err))

		return 0, err
	}

	span.SetAttributes(attribute.Int64("counter.total", total))

	return total, nil
}

func (c *RedisCounter) Total(ctx context.Context) (int64, error) {
	total, err := c.client.Get(ctx, counterKey).Int64()

	if err == redis.Nil {
		return 0, nil
	}

	return total, err
}
