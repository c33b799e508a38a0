package credential

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/hireledger/internal/config"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("s3cret")
	require.NoError(t, err)

	require.True(t, Verify("s3cret", encoded))
	require.False(t, Verify("other", encoded))
	require.False(t, Verify("s3cret", "$argon2id$v=19$broken"))
}

func TestVerifierRemembersAcceptedTokens(t *testing.T) {
	encoded, err := Hash("s3cret")
	require.NoError(t, err)

	v, err := NewVerifier(config.Config{InternalTokenHash: encoded})
	require.NoError(t, err)
	require.True(t, v.Enabled())
	ctx := context.Background()

	require.True(t, v.Verify(ctx, "s3cret"))
	require.Len(t, v.accepted, 1)
	require.True(t, v.Verify(ctx, "s3cret"))
	require.False(t, v.Verify(ctx, "wrong"))
	require.False(t, v.Verify(ctx, ""))
	require.Len(t, v.accepted, 1)
}

func TestVerifierWithoutHashRefusesEverything(t *testing.T) {
	v, err := NewVerifier(config.Config{})
	require.NoError(t, err)
	require.False(t, v.Enabled())
	require.False(t, v.Verify(context.Background(), "anything"))
}

func TestNewVerifierRejectsMalformedHash(t *testing.T) {
	_, err := NewVerifier(config.Config{InternalTokenHash: "plaintext"})
	require.ErrorIs(t, err, ErrMalformedHash)
}

func TestVerifierBoundsConcurrentHashing(t *testing.T) {
	encoded, err := Hash("s3cret")
	require.NoError(t, err)
	v, err := NewVerifier(config.Config{InternalTokenHash: encoded})
	require.NoError(t, err)
	require.True(t, v.Verify(context.Background(), "s3cret"))

	// Occupy every hashing slot.
	require.NoError(t, v.slots.Acquire(context.Background(), maxConcurrentVerifications))
	defer v.slots.Release(maxConcurrentVerifications)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.False(t, v.Verify(ctx, "guess"))
	require.Less(t, time.Since(start), time.Second)

	// Known tokens skip the queue.
	require.True(t, v.Verify(context.Background(), "s3cret"))
}
