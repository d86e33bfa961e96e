package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// KeyLocker serializes work per key. The returned unlock func is always safe to call.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ErrLockTimeout means the lock could not be obtained before the context or wait budget ran out.
var ErrLockTimeout = errors.New("lock: timed out waiting for key")

const (
	lockTTL  = 30 * time.Second
	lockWait = 10 * time.Second
)

// RedisLocker holds a Redis lock per key, so several API replicas serialize
// on the same product.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, "lock:"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return func() {}, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
	if err != nil {
		return func() {}, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("lock: release failed")
		}
	}, nil
}

// LocalLocker is the single-process fallback: one mutex per key, reference
// counted so idle keys are dropped.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return func() {}, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(key, e, true) }) }, nil
}

func (l *LocalLocker) release(key string, e *localEntry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
