package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	EnsureID(&inv.ID)
	err := r.db.WithContext(ctx).Omit("Product").Create(inv).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierror.ErrDuplicateInventory
	}
	return err
}

func (r *inventoryRepo) FindByID(ctx context.Context, id string) (*model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventoryRepo) FindByProductID(ctx context.Context, productID string) (*model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Limit(1).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventoryRepo) List(ctx context.Context) ([]model.Inventory, error) {
	var list []model.Inventory
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *inventoryRepo) ListLowStock(ctx context.Context) ([]model.Inventory, error) {
	var list []model.Inventory
	err := r.db.WithContext(ctx).
		Where("current_stock < minimum_stock").
		Order("current_stock ASC").
		Find(&list).Error
	return list, err
}

func (r *inventoryRepo) UpdateStock(ctx context.Context, inv *model.Inventory) error {
	res := r.db.WithContext(ctx).Model(&model.Inventory{}).Where("id = ?", inv.ID).Updates(map[string]any{
		"current_stock":     inv.CurrentStock,
		"average_cost":      inv.AverageCost,
		"last_stock_update": inv.LastStockUpdate,
		"updated_at":        inv.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrInventoryNotFound
	}
	return nil
}

// DecrementStock uses a conditional UPDATE so concurrent writers cannot
// push current_stock below zero.
func (r *inventoryRepo) DecrementStock(ctx context.Context, id string, qty int, at time.Time) (int, error) {
	res := r.db.WithContext(ctx).Model(&model.Inventory{}).
		Where("id = ? AND current_stock >= ?", id, qty).
		Updates(map[string]any{
			"current_stock":     gorm.Expr("current_stock - ?", qty),
			"last_stock_update": at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return 0, res.Error
	}

	inv, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if res.RowsAffected == 0 {
		return inv.CurrentStock, apierror.InsufficientStock(inv.CurrentStock, qty)
	}
	return inv.CurrentStock, nil
}
