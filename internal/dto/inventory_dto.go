package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// AddStockRequest adds units to a product's inventory. Without InventoryID the
// product's record is looked up and created with default thresholds if missing.
type AddStockRequest struct {
	InventoryID    string           `json:"inventoryId"`
	ProductID      string           `json:"productId"      validate:"required_without=InventoryID"`
	Quantity       int              `json:"quantity"       validate:"required,min=1"`
	UnitPrice      *decimal.Decimal `json:"unitPrice"      validate:"omitempty,gte=0"`
	Reason         string           `json:"reason"         validate:"required,max=200"`
	Reference      string           `json:"reference"`
	Notes          string           `json:"notes"`
	Location       string           `json:"location"`
	ExpirationDate *time.Time       `json:"expirationDate"`
	MinimumStock   *int             `json:"minimumStock"   validate:"omitempty,min=0"`
	MaximumStock   *int             `json:"maximumStock"   validate:"omitempty,min=0"`

	PerformedBy string `json:"-"`
}

// AdjustStockRequest sets the stock to an absolute value.
type AdjustStockRequest struct {
	NewQuantity int    `json:"newQuantity" validate:"min=0"`
	Reason      string `json:"reason"      validate:"required,max=200"`
	Notes       string `json:"notes"`

	PerformedBy string `json:"-"`
}

// RemoveStockRequest takes units out; the level never drops below zero.
type RemoveStockRequest struct {
	Quantity  int    `json:"quantity"  validate:"required,min=1"`
	Reason    string `json:"reason"    validate:"required,max=200"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`

	PerformedBy string `json:"-"`
}

type StockResult struct {
	Inventory model.Inventory     `json:"inventory"`
	Movement  model.StockMovement `json:"movement"`
	Created   bool                `json:"created"`
}

type MovementFilter struct {
	Limit int `form:"limit,default=50" validate:"min=1,max=500"`
}
