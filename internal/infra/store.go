package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository/docstore"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository/memory"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
)

// OpenStore builds the repository.Store selected by STORE_BACKEND.
// The returned close func is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("postgres: %w", err)
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewGormStore(db), closeFn, nil
	case config.StoreFirestore:
		client, err := NewFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, func() {}, err
		}
		return docstore.New(client), func() { _ = client.Close() }, nil
	case config.StoreMemory:
		log.Warn().Msg("store: using in-memory backend, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("store: unknown backend %q", cfg.StoreBackend)
}

// OpenSessionCache builds the session cache selected by SESSION_CACHE.
// rdb may be nil unless the redis cache is selected.
func OpenSessionCache(cfg *config.Config, rdb *redis.Client) (session.Cache, func(), error) {
	switch cfg.SessionCache {
	case config.CacheRedis:
		if rdb == nil {
			return nil, func() {}, fmt.Errorf("session cache: redis selected but REDIS_URL is empty")
		}
		return session.NewRedisCache(rdb), func() {}, nil
	case config.CacheBadger:
		db, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, func() {}, fmt.Errorf("session cache: badger: %w", err)
		}
		return session.NewBadgerCache(db), func() { _ = db.Close() }, nil
	case config.CacheMemory:
		return session.NewMemoryCache(), func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("session cache: unknown backend %q", cfg.SessionCache)
}
