//go:build integration

package worker

// Run with: go test -tags integration ./internal/worker/... -v

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestQueue_DispatchAndConsume(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan dto.GoalProgressJob, 1)
	reg := Registry{
		JobGoalProgress: funcProcessor(func(_ context.Context, payload json.RawMessage) error {
			var job dto.GoalProgressJob
			if err := json.Unmarshal(payload, &job); err != nil {
				return err
			}
			got <- job
			return nil
		}),
	}
	StartWorkerPool(ctx, rdb, 1, reg)

	require.NoError(t, NewDispatcher(rdb).EnqueueGoalProgress(ctx, dto.GoalProgressJob{SaleID: "s-42"}))
	select {
	case job := <-got:
		assert.Equal(t, "s-42", job.SaleID)
	case <-time.After(10 * time.Second):
		t.Fatal("job was not consumed")
	}
}

func TestQueue_FailingJobReachesDLQAndIsReplayed(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	var attempts atomic.Int32
	reg := Registry{
		JobLowStock: funcProcessor(func(context.Context, json.RawMessage) error {
			attempts.Add(1)
			return errors.New("relay down")
		}),
	}
	require.NoError(t, NewDispatcher(rdb).EnqueueLowStockAlert(ctx, dto.LowStockJob{InventoryID: "i1"}))

	// drive the queue by hand so retries are deterministic
	for i := 0; i < MaxAttempts; i++ {
		res, err := rdb.BRPop(ctx, time.Second, QueueAlerts).Result()
		require.NoError(t, err)
		processJob(ctx, rdb, reg, res[0], res[1])
	}
	assert.Equal(t, int32(MaxAttempts), attempts.Load())

	n, err := DLQLength(ctx, rdb, QueueAlerts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// an open breaker blocks the replay
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})
	_ = cb.Execute(func() error { return errors.New("down") })
	assert.Zero(t, replayDLQ(ctx, RetryCronConfig{RDB: rdb, CB: cb}, QueueAlerts))

	assert.Equal(t, 1, replayDLQ(ctx, RetryCronConfig{RDB: rdb}, QueueAlerts))
	raw, err := rdb.RPop(ctx, QueueAlerts).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, 1, job.Replays)
	assert.Zero(t, job.Attempts)
}

func TestQueue_ExhaustedReplaysAreParked(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	SendToDLQ(ctx, rdb, QueueAlerts, Job{Type: JobLowStock, Replays: MaxReplays, Attempts: MaxAttempts}, "relay down")
	assert.Zero(t, replayDLQ(ctx, RetryCronConfig{RDB: rdb}, QueueAlerts))

	parked, err := rdb.LLen(ctx, ParkedPrefix+QueueAlerts).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), parked)
}
