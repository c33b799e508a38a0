package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache stores JSON-encoded values under prefix+key. Redis failures are
// logged and treated as misses so the database stays the source of truth.
type RedisCache[V any] struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisCache[V any](client *redis.Client, prefix string, log *zap.Logger) *RedisCache[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache[V]{client: client, prefix: prefix, log: log}
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis cache get failed", zap.String("key", c.prefix+key), zap.Error(err))
		}
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		c.log.Warn("redis cache decode failed", zap.String("key", c.prefix+key), zap.Error(err))
		return value, false
	}
	return value, true
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("redis cache encode failed", zap.String("key", c.prefix+key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		c.log.Warn("redis cache set failed", zap.String("key", c.prefix+key), zap.Error(err))
	}
}

func (c *RedisCache[V]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.log.Warn("redis cache delete failed", zap.String("key", c.prefix+key), zap.Error(err))
	}
}

var _ Cache[string, int] = (*RedisCache[int])(nil)
