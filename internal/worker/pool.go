package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

const (
	QueueAlerts = "jobs:alerts"
	QueueGoals  = "jobs:goals"

	JobLowStock     = "low_stock"
	JobReportEmail  = "report_email"
	JobGoalProgress = "goal_progress"

	// MaxAttempts is how often a job runs before it is moved to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Replays  int             `json:"replays,omitempty"`
}

// Processor handles one job type. A returned error schedules a retry.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Registry maps job types to processors.
type Registry map[string]Processor

func queueFor(jobType string) string {
	if jobType == JobGoalProgress {
		return QueueGoals
	}
	return QueueAlerts
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

var _ service.JobDispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) EnqueueGoalProgress(ctx context.Context, job dto.GoalProgressJob) error {
	return d.enqueue(ctx, JobGoalProgress, job)
}

func (d *Dispatcher) EnqueueLowStockAlert(ctx context.Context, job dto.LowStockJob) error {
	return d.enqueue(ctx, JobLowStock, job)
}

func (d *Dispatcher) EnqueueReportEmail(ctx context.Context, job dto.ReportEmailJob) error {
	return d.enqueue(ctx, JobReportEmail, job)
}

func (d *Dispatcher) enqueue(ctx context.Context, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queueFor(jobType), Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, reg Registry) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, reg)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, reg Registry) {
	queues := []string{QueueGoals, QueueAlerts}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s, then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, reg, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, reg Registry, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: failed to unmarshal job")
		return
	}
	job.Attempts++

	err := runProcessor(ctx, reg, job)
	if err == nil {
		return
	}
	if job.Attempts >= MaxAttempts {
		SendToDLQ(ctx, rdb, queue, job, err.Error())
		return
	}
	log.Warn().
		Err(err).
		Str("type", job.Type).
		Int("attempt", job.Attempts).
		Msg("worker: job failed, requeued")
	if pushErr := push(ctx, rdb, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("queue", queue).Msg("worker: requeue failed")
	}
}

func runProcessor(ctx context.Context, reg Registry, job Job) (err error) {
	p, ok := reg[job.Type]
	if !ok {
		return fmt.Errorf("no processor for job type %q", job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return p.Process(ctx, job.Payload)
}

// ── Inline dispatch ──────────────────────────────────────────────────────────

// InlineDispatcher runs jobs in a goroutine of this process. It is used when
// no Redis is configured; failed jobs are logged after MaxAttempts.
type InlineDispatcher struct {
	reg     Registry
	backoff time.Duration
}

func NewInlineDispatcher(reg Registry) *InlineDispatcher {
	return &InlineDispatcher{reg: reg, backoff: time.Second}
}

var _ service.JobDispatcher = (*InlineDispatcher)(nil)

func (d *InlineDispatcher) EnqueueGoalProgress(ctx context.Context, job dto.GoalProgressJob) error {
	return d.run(ctx, JobGoalProgress, job)
}

func (d *InlineDispatcher) EnqueueLowStockAlert(ctx context.Context, job dto.LowStockJob) error {
	return d.run(ctx, JobLowStock, job)
}

func (d *InlineDispatcher) EnqueueReportEmail(ctx context.Context, job dto.ReportEmailJob) error {
	return d.run(ctx, JobReportEmail, job)
}

func (d *InlineDispatcher) run(ctx context.Context, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		job := Job{Type: jobType, Payload: data}
		var err error
		for job.Attempts < MaxAttempts {
			job.Attempts++
			if err = runProcessor(ctx, d.reg, job); err == nil {
				return
			}
			time.Sleep(d.backoff * time.Duration(job.Attempts))
		}
		log.Error().Err(err).Str("type", jobType).Int("attempts", job.Attempts).Msg("worker: inline job failed")
	}()
	return nil
}
