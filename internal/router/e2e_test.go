//go:build integration

package router

// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/worker"
)

func TestE2E_PostgresAndRedis(t *testing.T) {
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("fiap_farms_test"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	redisURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := testConfig(t, config.StorePostgres)
	cfg.DatabaseURL = dsn
	cfg.RedisURL = redisURL

	store, closeStore, err := infra.OpenStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(closeStore)
	rdb, err := infra.NewRedis(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	deps := testDeps(t, store)
	deps.RDB = rdb
	deps.Locker = infra.NewRedisLocker(rdb)
	deps.Dispatcher = worker.NewDispatcher(rdb)
	deps.SnapshotCache = dashboard.NewRedisSnapshotCache(rdb)
	deps.Poller = dashboard.NewPoller(deps.Aggregator, deps.SnapshotCache)
	r := New(cfg, deps)

	w := call(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "connected", field[string](t, w, "store"))
	assert.Equal(t, "connected", field[string](t, w, "redis"))

	farmFlow(t, r)

	// the sale queued a goal job on the real list
	n, err := rdb.LLen(ctx, worker.QueueGoals).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go deps.Poller.Run(pollCtx, time.Minute)

	require.Eventually(t, func() bool {
		return call(t, r, http.MethodGet, "/v1/dashboard/live", nil).Code == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond)

	w = call(t, r, http.MethodGet, "/v1/dashboard/live", nil)
	assert.Equal(t, "96", field[string](t, w, "monthlyRevenue"))

	// the cache write follows the in-memory swap
	month, year := model.CurrentMonth(time.Now())
	require.Eventually(t, func() bool {
		cached, err := deps.SnapshotCache.Get(ctx, month, year)
		return err == nil && cached.TotalSales == 1
	}, 5*time.Second, 50*time.Millisecond)
}
