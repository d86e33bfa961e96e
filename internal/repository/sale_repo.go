package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, s *model.Sale) error {
	EnsureID(&s.ID)
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *saleRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Sale, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *saleRepo) findOne(ctx context.Context, where string, arg any) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Where(where, arg).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("sale_date >= ? AND sale_date < ?", from, to).
		Order("sale_date DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) Recent(ctx context.Context, n int) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).Order("sale_date DESC").Limit(n).Find(&sales).Error
	return sales, err
}

func (r *saleRepo) MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error) {
	from, to := model.MonthRange(month, year)
	row := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("sale_date >= ? AND sale_date < ? AND status = ?", from, to, model.SaleCompleted).
		Row()
	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, false, err
	}
	return total, true, nil
}

func (r *saleRepo) UpdateStatus(ctx context.Context, id string, status model.SaleStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Sale{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.ErrSaleNotFound
	}
	return nil
}
