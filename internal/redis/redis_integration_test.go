//go:build integration

package redis_test

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	redisstore "github.com/ramiqadoumi/go-control-tracker/internal/redis"
)

var testRedisAddr string

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()
	ctr, err := tcRedis.Run(ctx, "redis:7-alpine")
	if err != nil {
		log.Fatalf("start redis container: %v", err)
	}
	defer ctr.Terminate(ctx) //nolint:errcheck

	connStr, err := ctr.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("redis connection string: %v", err)
	}
	testRedisAddr = strings.TrimPrefix(connStr, "redis://")
	return m.Run()
}

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	client := redisstore.NewClient(testRedisAddr)
	t.Cleanup(func() {
		client.FlushDB(context.Background()) //nolint:errcheck
		client.Close()                       //nolint:errcheck
	})
	return client
}

func TestLeader_OnlyOneInstanceLeads(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	a := redisstore.NewLeader(client, "tracker-a", slog.Default())
	b := redisstore.NewLeader(client, "tracker-b", slog.Default())

	assert.True(t, a.Acquire(ctx))
	assert.False(t, b.Acquire(ctx))
	assert.True(t, a.Acquire(ctx), "holder renews")

	a.Release(ctx)
	assert.True(t, b.Acquire(ctx))
	assert.False(t, a.Acquire(ctx))
}

func TestLeader_LeaseExpires(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	a := redisstore.NewLeader(client, "tracker-a", slog.Default()).WithTTL(200 * time.Millisecond)
	b := redisstore.NewLeader(client, "tracker-b", slog.Default())

	require.True(t, a.Acquire(ctx))
	require.Eventually(t, func() bool { return b.Acquire(ctx) }, 2*time.Second, 50*time.Millisecond)
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := redisstore.NewRateLimiter(newClient(t), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "alerts")
		require.NoError(t, err)
		assert.True(t, ok, "event %d", i)
	}
	ok, err := limiter.Allow(ctx, "alerts")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")
}

func TestDeliveryStore_ClaimOnce(t *testing.T) {
	store := redisstore.NewDeliveryStore(newClient(t))
	ctx := context.Background()

	first, err := store.Claim(ctx, "alert-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.Claim(ctx, "alert-1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, store.Release(ctx, "alert-1"))
	retry, err := store.Claim(ctx, "alert-1")
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestCountCache(t *testing.T) {
	cache := redisstore.NewCountCache(newClient(t), time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.ErrorIs(t, err, redisstore.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, 7))
	n, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, redisstore.ErrCacheMiss)
}
