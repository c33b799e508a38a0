// Package lock serializes work per key, across processes when redis is
// configured and within the process otherwise.
package lock

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("lock_timeout")

// Locker acquires an exclusive hold on key. The returned release func is safe
// to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

var Module = fx.Module("lock",
	fx.Provide(New),
)

func New(client *redis.Client, log *zap.Logger) Locker {
	if client != nil {
		return NewRedisLocker(client, log)
	}
	return NewLocalLocker()
}
