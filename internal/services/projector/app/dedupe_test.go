package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestDeduper(t *testing.T, ttl time.Duration) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDeduper(client, ttl), mr
}

func TestRedisDeduperMarksProcessed(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDeduper(t, time.Hour)

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, d.MarkProcessed(ctx, "evt-1"))
	seen, err = d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, seen)

	require.True(t, mr.Exists(defaultDedupePrefix+"evt-1"))
	require.Equal(t, time.Hour, mr.TTL(defaultDedupePrefix+"evt-1"))
}

func TestRedisDeduperMarkExpires(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDeduper(t, time.Minute)

	require.NoError(t, d.MarkProcessed(ctx, "evt-1"))
	mr.FastForward(2 * time.Minute)

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestRedisDeduperDefaultTTL(t *testing.T) {
	d, _ := newTestDeduper(t, 0)
	require.Equal(t, defaultDedupeTTL, d.ttl)
}

func TestRedisDeduperSurfacesErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	d := NewRedisDeduper(client, time.Hour)

	_, err := d.Seen(context.Background(), "evt-1")
	require.Error(t, err)
	require.Error(t, d.MarkProcessed(context.Background(), "evt-1"))
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := OpenRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	client, err = OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = OpenRedis(context.Background(), " ")
	require.Error(t, err)
}
