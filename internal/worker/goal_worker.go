package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

// GoalWorker credits completed sales to the active goals they count towards.
type GoalWorker struct {
	goals service.GoalService
}

func NewGoalWorker(goals service.GoalService) *GoalWorker {
	return &GoalWorker{goals: goals}
}

func (w *GoalWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var job dto.GoalProgressJob
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Msg("goal_worker: invalid payload")
		return nil
	}
	n, err := w.goals.ApplySale(ctx, job)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Str("sale_id", job.SaleID).Int("goals", n).Msg("goal_worker: progress updated")
	}
	return nil
}
