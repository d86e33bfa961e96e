package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisCache stores session blobs under the "session:" namespace.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

func (c *RedisCache) FindKey(ctx context.Context, substr string) (string, error) {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, redisKeyPrefix+"*"+substr+"*", 100).Result()
		if err != nil {
			return "", err
		}
		if len(keys) > 0 {
			return strings.TrimPrefix(keys[0], redisKeyPrefix), nil
		}
		if next == 0 {
			return "", ErrCacheMiss
		}
		cursor = next
	}
}
