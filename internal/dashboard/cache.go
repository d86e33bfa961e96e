package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache shares the latest snapshot between API replicas.
type SnapshotCache interface {
	Put(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, month, year int) (*Snapshot, error)
}

// ErrNoSnapshot is returned by SnapshotCache.Get on a miss.
var ErrNoSnapshot = errors.New("dashboard: no cached snapshot")

const snapshotTTL = 5 * time.Minute

type RedisSnapshotCache struct {
	rdb *redis.Client
}

func NewRedisSnapshotCache(rdb *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{rdb: rdb}
}

func snapshotKey(month, year int) string {
	return fmt.Sprintf("dashboard:%d-%02d", year, month)
}

func (c *RedisSnapshotCache) Put(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey(snap.Month, snap.Year), data, snapshotTTL).Err()
}

func (c *RedisSnapshotCache) Get(ctx context.Context, month, year int) (*Snapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(month, year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
