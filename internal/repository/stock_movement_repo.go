package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	EnsureID(&m.ID)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *stockMovementRepo) ListByInventory(ctx context.Context, inventoryID string, limit int) ([]model.StockMovement, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var list []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("performed_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
