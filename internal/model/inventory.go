package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultMinimumStock = 10
	DefaultMaximumStock = 1000
)

// Inventory tracks the stock of a single product. One record per product is
// enforced by a unique index on ProductID.
type Inventory struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	ProductID       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"productId"`
	CurrentStock    int             `gorm:"not null;default:0" json:"currentStock"`
	MinimumStock    int             `gorm:"not null;default:10" json:"minimumStock"`
	MaximumStock    int             `gorm:"not null;default:1000" json:"maximumStock"`
	AverageCost     decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"averageCost"`
	Location        string          `json:"location,omitempty"`
	ExpirationDate  *time.Time      `json:"expirationDate,omitempty"`
	LastStockUpdate time.Time       `json:"lastStockUpdate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName keeps the collection name shared with the document store.
func (Inventory) TableName() string { return "inventories" }

// IsLowStock reports whether the record sits strictly below its minimum.
func (i Inventory) IsLowStock() bool {
	return i.CurrentStock < i.MinimumStock
}

// WeightedAverageCost folds an inbound lot into the running average cost.
// When unitPrice is not positive the previous average is kept.
func WeightedAverageCost(oldQty int, oldAvg decimal.Decimal, addedQty int, unitPrice decimal.Decimal) decimal.Decimal {
	if !unitPrice.IsPositive() {
		return oldAvg
	}
	total := oldQty + addedQty
	if total <= 0 {
		return unitPrice
	}
	oldValue := oldAvg.Mul(decimal.NewFromInt(int64(oldQty)))
	addedValue := unitPrice.Mul(decimal.NewFromInt(int64(addedQty)))
	return oldValue.Add(addedValue).Div(decimal.NewFromInt(int64(total)))
}
