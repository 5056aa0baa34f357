package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Burst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ml := NewMemoryLimiter(ctx, 1, 3)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ml.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := ml.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}
	res, err := ml.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// Other keys have their own bucket.
	res, _ = ml.Allow(ctx, "10.0.0.2")
	assert.True(t, res.Allowed)

	// Tokens refill over time.
	now = now.Add(2 * time.Second)
	res, _ = ml.Allow(ctx, "10.0.0.1")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_EvictIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ml := NewWindowMemoryLimiter(ctx, 30, time.Minute)
	now := time.Now()
	ml.now = func() time.Time { return now }

	_, _ = ml.Allow(ctx, "user-1")
	now = now.Add(5 * time.Minute)
	ml.evictIdle()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	assert.Empty(t, ml.visitors)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set, skip redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	rl := NewRedisLimiter(client, "test:rate_limit:"+uuid.NewString(), 2, time.Minute)

	for i := 0; i < 2; i++ {
		res, err := rl.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.GreaterOrEqual(t, res.RetryAfter, time.Second)
}
