package observe

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pedrokiefer/dangleip/pkg/config"
)

// Open builds the store selected by c. The returned close function releases
// the underlying connection and is never nil.
func Open(c config.StoreConfig) (Store, func() error, error) {
	switch c.Type {
	case "", config.StoreTypeMemory:
		return NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return NewRedisStore(client, c.RedisKeyPrefix, c.Retention), client.Close, nil
	case "sqlite":
		s, err := NewSQLiteStore(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", c.Type)
	}
}
