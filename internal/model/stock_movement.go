package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is the append-only audit trail of inventory changes.
// For adjustments Quantity holds the absolute target stock.
type StockMovement struct {
	ID           string           `gorm:"type:varchar(64);primaryKey" json:"id"`
	InventoryID  string           `gorm:"type:varchar(64);not null;index" json:"inventoryId"`
	MovementType MovementType     `gorm:"type:varchar(16);not null" json:"movementType"`
	Quantity     int              `gorm:"not null" json:"quantity"`
	UnitPrice    *decimal.Decimal `gorm:"type:decimal(12,2)" json:"unitPrice,omitempty"`
	Reference    string           `gorm:"index" json:"reference,omitempty"`
	Reason       string           `json:"reason"`
	PerformedBy  string           `json:"performedBy"`
	PerformedAt  time.Time        `gorm:"index" json:"performedAt"`
	Notes        string           `json:"notes,omitempty"`
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }

// ApplyMovement returns the stock level after a movement. Outbound movements
// clamp at zero; adjustments set the absolute value.
func ApplyMovement(current int, kind MovementType, quantity int) int {
	switch kind {
	case MovementIn:
		return current + quantity
	case MovementOut:
		if next := current - quantity; next > 0 {
			return next
		}
		return 0
	case MovementAdjustment:
		if quantity < 0 {
			return 0
		}
		return quantity
	default:
		return current
	}
}
