package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "computor-backend/pkg/errors"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreakerBackend(failingBackend{}, BreakerConfig{
		ConsecutiveFailures: 3,
		OpenTimeout:         time.Minute,
	})
	ctx := context.Background()

	// Failures pass through until the trip threshold.
	for i := 0; i < 3; i++ {
		_, _, err := b.Get(ctx, "k")
		require.ErrorIs(t, err, errDown)
	}

	// Open: calls short-circuit with the bypass error type.
	_, _, err := b.Get(ctx, "k")
	require.Error(t, err)
	assert.True(t, apperrors.IsCacheUnavailable(err))
	assert.NotErrorIs(t, err, errDown)
}

func TestBreaker_HealthyBackendPassesThrough(t *testing.T) {
	inner := NewInMemoryBackend()
	b := NewBreakerBackend(inner, DefaultBreakerConfig())
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	data, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, b.SAdd(ctx, "s", "a", "b"))
	members, err := b.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	v, err := b.Incr(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestBreaker_RecoversAfterOpenTimeout(t *testing.T) {
	b := NewBreakerBackend(failingBackend{}, BreakerConfig{
		ConsecutiveFailures: 1,
		OpenTimeout:         20 * time.Millisecond,
	})
	ctx := context.Background()

	_, _, err := b.Get(ctx, "k")
	require.ErrorIs(t, err, errDown)

	_, _, err = b.Get(ctx, "k")
	assert.True(t, apperrors.IsCacheUnavailable(err))

	// Half-open probe reaches the backend again after the timeout.
	time.Sleep(30 * time.Millisecond)
	_, _, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, errDown)
}

func TestBreaker_CacheBehaviorUnchangedWhenOpen(t *testing.T) {
	b := NewBreakerBackend(failingBackend{}, BreakerConfig{
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Minute,
	})
	c := New(b, "test", zap.NewNop())
	ctx := context.Background()

	_, _, _ = b.Get(ctx, "trip")

	// Bypass mode: reads miss, writes drop, nothing surfaces.
	var got payload
	assert.False(t, c.GetByKey(ctx, "test:k", &got))
	assert.NoError(t, c.SetWithTags(ctx, "test:k", payload{}, []string{"t"}, time.Minute))
	c.InvalidateTags(ctx, "t")
}
