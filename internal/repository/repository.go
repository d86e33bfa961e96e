package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// Collection names shared by every backend.
const (
	CollectionProducts       = "products"
	CollectionInventories    = "inventories"
	CollectionStockMovements = "stock_movements"
	CollectionSales          = "sales"
	CollectionGoals          = "goals"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on a concrete backend.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	// TopByProfitMargin returns up to n products ordered by margin, highest first.
	TopByProfitMargin(ctx context.Context, n int) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
}

type InventoryRepository interface {
	// Create fails with apierror.ErrDuplicateInventory when the product already has a record.
	Create(ctx context.Context, inv *model.Inventory) error
	FindByID(ctx context.Context, id string) (*model.Inventory, error)
	FindByProductID(ctx context.Context, productID string) (*model.Inventory, error)
	List(ctx context.Context) ([]model.Inventory, error)
	// ListLowStock returns records with current stock strictly below the minimum.
	ListLowStock(ctx context.Context) ([]model.Inventory, error)
	// UpdateStock persists current stock, average cost and the stock timestamps.
	UpdateStock(ctx context.Context, inv *model.Inventory) error
	// DecrementStock subtracts qty only when enough stock exists and returns
	// the new level. Otherwise it returns an *apierror.InsufficientStockError.
	DecrementStock(ctx context.Context, id string, qty int, at time.Time) (int, error)
}

type StockMovementRepository interface {
	Create(ctx context.Context, m *model.StockMovement) error
	ListByInventory(ctx context.Context, inventoryID string, limit int) ([]model.StockMovement, error)
}

type SaleRepository interface {
	Create(ctx context.Context, s *model.Sale) error
	FindByID(ctx context.Context, id string) (*model.Sale, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Sale, error)
	// FindByDateRange returns sales with from <= saleDate < to, newest first.
	FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	Recent(ctx context.Context, n int) ([]model.Sale, error)
	// MonthlyRevenue is the server-side sum of completed sales in the month.
	// ok is false when the backend cannot pre-aggregate.
	MonthlyRevenue(ctx context.Context, month, year int) (total decimal.Decimal, ok bool, err error)
	UpdateStatus(ctx context.Context, id string, status model.SaleStatus) error
}

type GoalRepository interface {
	Create(ctx context.Context, g *model.Goal) error
	FindByID(ctx context.Context, id string) (*model.Goal, error)
	List(ctx context.Context) ([]model.Goal, error)
	// ListActive returns active goals whose window contains at.
	ListActive(ctx context.Context, at time.Time) ([]model.Goal, error)
	Update(ctx context.Context, g *model.Goal) error
	Delete(ctx context.Context, id string) error
}

// Store groups the repositories of one backend. RunInTx hands fn a Store whose
// repositories share a single transaction; fn's error aborts every write.
type Store interface {
	Products() ProductRepository
	Inventories() InventoryRepository
	Movements() StockMovementRepository
	Sales() SaleRepository
	Goals() GoalRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
}

// NewID returns a fresh document id.
func NewID() string { return uuid.NewString() }

// EnsureID assigns a fresh id when *id is empty.
func EnsureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}
