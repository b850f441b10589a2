package observe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "dangleip:seen:", 7*24*time.Hour), mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newTestRedis(t)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	seen, err := s.RecentlySeen(ctx, "198.51.100.7", 48*time.Hour)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, s.Record(ctx, "198.51.100.7", now.Add(-10*time.Second)))
	got, err := mr.Get("dangleip:seen:198.51.100.7")
	require.NoError(t, err)
	require.Equal(t, "1699999990", got)
	require.Equal(t, 7*24*time.Hour, mr.TTL("dangleip:seen:198.51.100.7"))

	seen, err = s.RecentlySeen(ctx, "198.51.100.7", 48*time.Hour)
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = s.RecentlySeen(ctx, "198.51.100.7", 5*time.Second)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestRedisStore_Expired(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "198.51.100.7", time.Now()))
	mr.FastForward(8 * 24 * time.Hour)

	seen, err := s.RecentlySeen(ctx, "198.51.100.7", 48*time.Hour)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestRedisStore_Errors(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("dangleip:seen:198.51.100.7", "yesterday"))
	_, err := s.RecentlySeen(ctx, "198.51.100.7", time.Hour)
	require.Error(t, err)

	mr.Close()
	_, err = s.RecentlySeen(ctx, "198.51.100.8", time.Hour)
	require.Error(t, err)
	require.Error(t, s.Record(ctx, "198.51.100.8", time.Now()))
}
