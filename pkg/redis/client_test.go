package redis

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

type fakeCommands struct {
	values map[string]string
	ttls   map[string]time.Duration
	failOn string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if f.failOn == "setnx" {
		return redis.NewBoolResult(false, fmt.Errorf("connection reset"))
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			removed++
		}
		delete(f.values, key)
		delete(f.ttls, key)
	}
	return redis.NewIntResult(removed, nil)
}

func newTestClient() (*Client, *fakeCommands) {
	fake := newFakeCommands()
	return &Client{Keyspace: "test", cmd: fake}, fake
}

func TestFixedWindowAllowCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "writes:user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}

	allowed, count, err := client.FixedWindowAllow(ctx, "writes:user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)

	key := client.RateLimitKey("writes:user:1")
	assert.Equal(t, time.Minute, fake.ttls[key], "ttl is set when the window opens")
}

func TestFixedWindowAllowErrors(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()

	_, _, err := client.FixedWindowAllow(ctx, "s", 1, 0)
	assert.Error(t, err)

	fake.failOn = "setnx"
	_, _, err = client.FixedWindowAllow(ctx, "s", 1, time.Second)
	assert.ErrorContains(t, err, "open window test:ratelimit:s")
}

func TestSetNXOnlyWritesOnce(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient()
	key := client.IdempotencyKey("orders", "abc")

	ok, err := client.SetNX(ctx, key, "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, Nil)
	assert.NoError(t, client.Del(ctx))
}

func TestZeroClient(t *testing.T) {
	var client Client
	ctx := context.Background()

	assert.ErrorIs(t, client.Ping(ctx), ErrNotInitialized)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0), ErrNotInitialized)
	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = client.FixedWindowAllow(ctx, "s", 1, time.Second)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	var zero Keyspace
	cases := map[string]string{
		DefaultKeyspace.IdempotencyKey("orders", "id"): "bazaar:idem:orders:id",
		DefaultKeyspace.IdempotencyKey("orders", " "):  "bazaar:idem:orders",
		DefaultKeyspace.RateLimitKey("writes:ip:1"):    "bazaar:ratelimit:writes:ip:1",
		Keyspace("stage").RevokedTokenKey("jti-1"):     "stage:revoked:jti-1",
		zero.StockStatusKey("p-1"):                     "bazaar:stock:p-1",
	}
	for got, want := range cases {
		assert.Equal(t, want, got)
	}
}

func TestDialOptions(t *testing.T) {
	_, err := dialOptions(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := dialOptions(config.RedisConfig{
		URL:         "redis://localhost:6379/3",
		DB:          1,
		PoolSize:    20,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.DB, "url db wins")
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = dialOptions(config.RedisConfig{Address: "cache:6379", Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}
