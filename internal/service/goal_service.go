package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

type GoalService interface {
	Create(ctx context.Context, req dto.CreateGoalRequest) (*model.Goal, error)
	List(ctx context.Context) ([]dto.GoalProgress, error)
	UpdateProgress(ctx context.Context, id string, current decimal.Decimal) (*dto.GoalProgress, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (*dto.GoalSummary, error)
	// ApplySale credits a completed sale to every active goal it counts towards.
	ApplySale(ctx context.Context, job dto.GoalProgressJob) (int, error)
}

type goalService struct {
	goals repository.GoalRepository
	now   func() time.Time
}

func NewGoalService(goals repository.GoalRepository) GoalService {
	return &goalService{goals: goals, now: time.Now}
}

func (s *goalService) Create(ctx context.Context, req dto.CreateGoalRequest) (*model.Goal, error) {
	if !req.TargetValue.IsPositive() {
		return nil, apierror.Invalid("valor alvo deve ser maior que zero")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, apierror.Invalid("data final deve ser posterior à inicial")
	}
	now := s.now()
	g := &model.Goal{
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		TargetValue:  req.TargetValue,
		CurrentValue: decimal.Zero,
		Unit:         req.Unit,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       model.GoalActive,
		ProductID:    req.ProductID,
		Category:     req.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	g.Status = g.ResolveStatus(now)
	if err := s.goals.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *goalService) List(ctx context.Context) ([]dto.GoalProgress, error) {
	goals, err := s.goals.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, dto.GoalProgress{Goal: g, Progress: g.Progress()})
	}
	return out, nil
}

func (s *goalService) UpdateProgress(ctx context.Context, id string, current decimal.Decimal) (*dto.GoalProgress, error) {
	if current.IsNegative() {
		return nil, apierror.Invalid("valor atual não pode ser negativo")
	}
	g, err := s.goals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.CurrentValue = current
	g.Status = g.ResolveStatus(s.now())
	g.UpdatedAt = s.now()
	if err := s.goals.Update(ctx, g); err != nil {
		return nil, err
	}
	return &dto.GoalProgress{Goal: *g, Progress: g.Progress()}, nil
}

func (s *goalService) Delete(ctx context.Context, id string) error {
	return s.goals.Delete(ctx, id)
}

// Summary reports the rounded mean progress and how many goals reached 100%.
func (s *goalService) Summary(ctx context.Context) (*dto.GoalSummary, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sum := &dto.GoalSummary{Goals: list}
	if len(list) == 0 {
		return sum, nil
	}
	total := 0
	for _, gp := range list {
		total += gp.Progress
		if gp.Progress >= 100 {
			sum.AchievedCount++
		}
	}
	sum.OverallProgress = int(math.Round(float64(total) / float64(len(list))))
	return sum, nil
}

func (s *goalService) ApplySale(ctx context.Context, job dto.GoalProgressJob) (int, error) {
	active, err := s.goals.ListActive(ctx, job.SaleDate)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range active {
		g := &active[i]
		if !goalMatches(g, job) {
			continue
		}
		switch g.Type {
		case model.GoalSalesRevenue:
			g.CurrentValue = g.CurrentValue.Add(job.Revenue)
		case model.GoalSalesVolume:
			g.CurrentValue = g.CurrentValue.Add(decimal.NewFromInt(int64(job.Quantity)))
		default:
			continue
		}
		g.Status = g.ResolveStatus(s.now())
		g.UpdatedAt = s.now()
		if err := s.goals.Update(ctx, g); err != nil {
			return updated, err
		}
		updated++
		if g.Status == model.GoalAchieved {
			log.Info().Str("goal_id", g.ID).Str("title", g.Title).Msg("goal achieved")
		}
	}
	return updated, nil
}

func goalMatches(g *model.Goal, job dto.GoalProgressJob) bool {
	if g.Status != model.GoalActive || !g.Covers(job.SaleDate) {
		return false
	}
	if g.ProductID != "" && g.ProductID != job.ProductID {
		return false
	}
	if g.Category != "" && g.Category != job.Category {
		return false
	}
	return true
}
