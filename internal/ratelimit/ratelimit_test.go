package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *Limiter {
	t.Helper()
	addr := os.Getenv("MEALPLANNER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEALPLANNER_TEST_REDIS_ADDR not set")
	}

	l, err := New(context.Background(), addr, limit, window)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testKey(t *testing.T) string {
	return t.Name() + ":" + time.Now().Format(time.RFC3339Nano)
}

func TestAllow_CountsWithinWindow(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()
	key := testKey(t)

	for i := range 3 {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
		assert.Equal(t, 3-(i+1), res.Remaining)
	}

	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.Reset, 2*time.Second)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	a, err := l.Allow(ctx, testKey(t)+":a")
	require.NoError(t, err)
	b, err := l.Allow(ctx, testKey(t)+":b")
	require.NoError(t, err)

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
}

func TestAllow_WindowResets(t *testing.T) {
	l := newTestLimiter(t, 1, 200*time.Millisecond)
	ctx := context.Background()
	key := testKey(t)

	_, err := l.Allow(ctx, key)
	require.NoError(t, err)
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(300 * time.Millisecond)

	res, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAllow_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	l := NewWithClient(client, 5, time.Minute)
	defer l.Close()

	_, err := l.Allow(context.Background(), "any")
	assert.Error(t, err)
}
