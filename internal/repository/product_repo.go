package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	EnsureID(&p.ID)
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) TopByProfitMargin(ctx context.Context, n int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("profit_margin DESC").Limit(n).Find(&products).Error
	return products, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":          p.Name,
		"category":      p.Category,
		"description":   p.Description,
		"unit_price":    p.UnitPrice,
		"cost_price":    p.CostPrice,
		"profit_margin": p.ProfitMargin,
		"image_url":     p.ImageURL,
		"thumbnail_url": p.ThumbnailURL,
		"updated_at":    p.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrProductNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrProductNotFound
	}
	return nil
}
