package worker

// Replays dead-lettered alert jobs once the SMTP relay is reachable again.
// Uses the mail circuit breaker to avoid hammering a downed relay.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
	// MaxReplays bounds how often one job comes back from the DLQ before it is parked.
	MaxReplays = 3
)

type RetryCronConfig struct {
	RDB *redis.Client
	CB  *infra.CircuitBreaker
	// Queues whose DLQ is replayed; defaults to the alert queue.
	Queues []string
}

// StartRetryCron ticks every 30s and moves up to retryBatchSize DLQ entries
// back onto their queue while the breaker is not open.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{QueueAlerts}
	}
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				for _, q := range cfg.Queues {
					replayDLQ(ctx, cfg, q)
				}
			}
		}
	}()
}

func replayDLQ(ctx context.Context, cfg RetryCronConfig, queue string) int {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	replayed := 0
	for i := 0; i < retryBatchSize; i++ {
		// the breaker may trip mid-batch
		if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
			return replayed
		}
		raw, err := cfg.RDB.RPop(ctx, DLQPrefix+queue).Result()
		if errors.Is(err, redis.Nil) {
			return replayed
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to read DLQ")
			return replayed
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("retry_cron: dropping malformed DLQ entry")
			continue
		}

		job := entry.Job
		if job.Replays >= MaxReplays {
			if err := cfg.RDB.LPush(ctx, ParkedPrefix+queue, raw).Err(); err != nil {
				log.Error().Err(err).Msg("retry_cron: failed to park entry")
			}
			log.Warn().Str("job_type", job.Type).Int("replays", job.Replays).Msg("retry_cron: job parked")
			continue
		}
		job.Replays++
		job.Attempts = 0
		if err := push(ctx, cfg.RDB, queue, job); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: requeue failed")
			return replayed
		}
		replayed++
	}
	if replayed > 0 {
		log.Info().Int("count", replayed).Str("queue", queue).Msg("retry_cron: replayed DLQ entries")
	}
	return replayed
}
