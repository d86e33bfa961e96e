package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type gormStore struct{ db *gorm.DB }

// NewGormStore returns a Store backed by a relational database.
func NewGormStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Products() ProductRepository        { return NewProductRepository(s.db) }
func (s *gormStore) Inventories() InventoryRepository   { return NewInventoryRepository(s.db) }
func (s *gormStore) Movements() StockMovementRepository { return NewStockMovementRepository(s.db) }
func (s *gormStore) Sales() SaleRepository              { return NewSaleRepository(s.db) }
func (s *gormStore) Goals() GoalRepository              { return NewGoalRepository(s.db) }

func (s *gormStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the tables of every entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Inventory{},
		&model.StockMovement{},
		&model.Sale{},
		&model.Goal{},
	)
}
