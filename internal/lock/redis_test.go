package lock

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerDeadlineDuringAttemptIsTimeout(t *testing.T) {
	// The dialer stalls until the caller gives up, so the deadline fires
	// inside the SET NX round trip rather than between retries.
	client := redis.NewClient(&redis.Options{
		Addr:       "redis.invalid:6379",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	release, err := NewRedisLocker(client, nil).Lock(ctx, "hireledger:entitlement:recruiter:1", time.Second)
	require.Nil(t, release)
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLockerRejectsEmptyKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "redis.invalid:6379"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisLocker(client, nil).Lock(context.Background(), "", time.Second)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrLockTimeout))
}
