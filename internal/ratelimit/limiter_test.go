package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-gateway/internal/config"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNew(t *testing.T) {
	_, client := newMiniRedis(t)

	lim, err := New(config.RateLimitConfig{}, nil)
	require.NoError(t, err)
	require.IsType(t, Unlimited{}, lim)

	lim, err = New(config.RateLimitConfig{Backend: BackendMemory, RequestsPerMinute: 10}, nil)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, lim)

	lim, err = New(config.RateLimitConfig{Backend: BackendRedis, RequestsPerMinute: 10}, client)
	require.NoError(t, err)
	require.IsType(t, &Redis{}, lim)

	_, err = New(config.RateLimitConfig{Backend: BackendRedis}, nil)
	require.Error(t, err)

	_, err = New(config.RateLimitConfig{Backend: "leaky"}, nil)
	require.Error(t, err)
}

func TestUnlimited(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		ok, err := Unlimited{}.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestMemory_BurstPerKey(t *testing.T) {
	ctx := context.Background()
	lim := NewMemory(1, 2)

	for i := 0; i < 2; i++ {
		ok, err := lim.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, _ := lim.Allow(ctx, "a")
	require.False(t, ok)

	ok, _ = lim.Allow(ctx, "b")
	require.True(t, ok)
}

func TestMemory_EvictsIdleBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lim := NewMemory(60, 5)
	lim.now = func() time.Time { return now }

	for _, key := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		ok, err := lim.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 3, lim.Len())

	now = now.Add(30 * time.Second)
	_, _ = lim.Allow(ctx, "198.51.100.1")
	require.Equal(t, 3, lim.Len())

	now = now.Add(45 * time.Second)
	_, _ = lim.Allow(ctx, "198.51.100.4")
	require.Equal(t, 2, lim.Len())
}

func TestMemory_EvictionKeepsLimitsForActiveKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lim := NewMemory(1, 1)
	lim.now = func() time.Time { return now }

	ok, _ := lim.Allow(ctx, "a")
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, _ = lim.Allow(ctx, "a")
	require.False(t, ok)

	now = now.Add(31 * time.Second)
	ok, _ = lim.Allow(ctx, "a")
	require.True(t, ok)
}

func TestRedis_FixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedis(t)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lim := NewRedis(client, 3, time.Minute)
	lim.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := lim.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "request %d", i+1)
	}
	ok, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = lim.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, key := range keys {
		require.True(t, mr.TTL(key) > 0 && mr.TTL(key) <= time.Minute, key)
	}

	now = now.Add(time.Minute)
	ok, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedis_StoreUnavailable(t *testing.T) {
	mr, client := newMiniRedis(t)
	mr.Close()

	_, err := NewRedis(client, 3, time.Minute).Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
}
