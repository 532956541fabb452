package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/payments/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdempotencyStore(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisIdempotencyStore_MarkProcessed(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, mr.Exists(DefaultKeyPrefix+"evt_1"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultKeyPrefix+"evt_1"))

	claimed, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRedisIdempotencyStore_Expiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisIdempotencyStore_Release(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, store.Release(ctx, "evt_1"))

	claimed, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.MarkProcessed(context.Background(), "evt_1", time.Hour)
	assert.ErrorContains(t, err, "failed to claim webhook event evt_1")
}

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("in-memory when redis is not configured", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{}, false, logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis when reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		store, err := NewIdempotencyStore(ctx, config.RedisConfig{Host: mr.Host(), Port: port}, true, logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

		_, err := NewIdempotencyStore(ctx, cfg, true, logger)
		assert.ErrorContains(t, err, "redis required")

		store, err := NewIdempotencyStore(ctx, cfg, false, logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})
}
