package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type goalRepo struct{ db *gorm.DB }

func NewGoalRepository(db *gorm.DB) GoalRepository { return &goalRepo{db: db} }

func (r *goalRepo) Create(ctx context.Context, g *model.Goal) error {
	EnsureID(&g.ID)
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *goalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	var g model.Goal
	err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *goalRepo) List(ctx context.Context) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).Order("end_date ASC").Find(&goals).Error
	return goals, err
}

func (r *goalRepo) ListActive(ctx context.Context, at time.Time) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ? AND end_date >= ?", model.GoalActive, at, at).
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) Update(ctx context.Context, g *model.Goal) error {
	res := r.db.WithContext(ctx).Model(&model.Goal{}).Where("id = ?", g.ID).Updates(map[string]any{
		"title":         g.Title,
		"description":   g.Description,
		"target_value":  g.TargetValue,
		"current_value": g.CurrentValue,
		"unit":          g.Unit,
		"start_date":    g.StartDate,
		"end_date":      g.EndDate,
		"status":        g.Status,
		"product_id":    g.ProductID,
		"category":      g.Category,
		"updated_at":    g.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrGoalNotFound
	}
	return nil
}

func (r *goalRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Goal{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrGoalNotFound
	}
	return nil
}
