package observe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisStore keeps one key per address holding the unix time it was last
// seen. Keys expire after the retention period.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
	retention time.Duration
	now       func() time.Time
}

func NewRedisStore(client redis.Cmdable, keyPrefix string, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
		now:       time.Now,
	}
}

func (r *RedisStore) key(ip string) string {
	return r.keyPrefix + ip
}

func (r *RedisStore) Record(ctx context.Context, ip string, seenAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(ip), seenAt.Unix(), r.retention).Err(); err != nil {
		log.Error("Failed to record observation", "key", r.key(ip), "error", err)
		return fmt.Errorf("record %s: %w", ip, err)
	}
	return nil
}

func (r *RedisStore) RecentlySeen(ctx context.Context, ip string, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(ip)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", ip, err)
	}

	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt observation for %s: %w", ip, err)
	}
	return within(time.Unix(ts, 0), r.now(), window), nil
}
