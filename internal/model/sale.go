package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleCompleted, SaleCancelled, SaleRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPix          PaymentMethod = "pix"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// Sale records a single-product sale. TotalAmount and Profit are frozen at
// creation using the product's cost price at that moment.
type Sale struct {
	ID             string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	ProductID      string          `gorm:"type:varchar(64);not null;index" json:"productId"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	Profit         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"profit"`
	CustomerName   string          `json:"customerName,omitempty"`
	CustomerEmail  string          `json:"customerEmail,omitempty"`
	SaleDate       time.Time       `gorm:"index;not null" json:"saleDate"`
	Status         SaleStatus      `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(32);not null" json:"paymentMethod"`
	Notes          string          `json:"notes,omitempty"`
	IdempotencyKey *string         `gorm:"uniqueIndex" json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SaleTotals computes total amount and profit for quantity units sold at
// unitPrice against costPrice.
func SaleTotals(quantity int, unitPrice, costPrice decimal.Decimal) (total, profit decimal.Decimal) {
	q := decimal.NewFromInt(int64(quantity))
	total = unitPrice.Mul(q)
	profit = unitPrice.Sub(costPrice).Mul(q)
	return total, profit
}

// MonthRange returns the half-open UTC range [start, end) of month/year.
func MonthRange(month, year int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CurrentMonth returns the UTC month and year of now.
func CurrentMonth(now time.Time) (month, year int) {
	now = now.UTC()
	return int(now.Month()), now.Year()
}
