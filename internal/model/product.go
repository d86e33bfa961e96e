package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. ProfitMargin is derived at write time from
// UnitPrice and CostPrice and stored as a percentage.
type Product struct {
	ID           string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name         string          `gorm:"index;not null" json:"name"`
	Category     string          `gorm:"index;not null" json:"category"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"costPrice"`
	ProfitMargin decimal.Decimal `gorm:"type:decimal(12,4);index" json:"profitMargin"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ProfitMarginFor returns (unit - cost) / cost * 100, or zero when cost is zero.
func ProfitMarginFor(unitPrice, costPrice decimal.Decimal) decimal.Decimal {
	if costPrice.IsZero() {
		return decimal.Zero
	}
	return unitPrice.Sub(costPrice).Div(costPrice).Mul(decimal.NewFromInt(100))
}
