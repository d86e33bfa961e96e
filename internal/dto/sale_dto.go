package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateSaleRequest struct {
	ProductID      string              `json:"productId"      validate:"required"`
	Quantity       int                 `json:"quantity"       validate:"required,min=1"`
	UnitPrice      *decimal.Decimal    `json:"unitPrice"      validate:"omitempty,gte=0"`
	CustomerName   string              `json:"customerName"   validate:"max=120"`
	CustomerEmail  string              `json:"customerEmail"  validate:"omitempty,email"`
	SaleDate       *time.Time          `json:"saleDate"`
	Status         model.SaleStatus    `json:"status"         validate:"omitempty,oneof=pending completed cancelled refunded"`
	PaymentMethod  model.PaymentMethod `json:"paymentMethod"  validate:"required,oneof=cash credit_card debit_card pix bank_transfer"`
	Notes          string              `json:"notes"`
	IdempotencyKey string              `json:"idempotencyKey" validate:"max=128"`

	PerformedBy string `json:"-"`
}

type UpdateSaleStatusRequest struct {
	Status model.SaleStatus `json:"status" validate:"required,oneof=pending completed cancelled refunded"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales. Dates are
// YYYY-MM-DD; empty means the current month.
type SaleFilter struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   validate:"omitempty,datetime=2006-01-02"`
}

type MonthFilter struct {
	Month int `form:"month" validate:"omitempty,min=1,max=12"`
	Year  int `form:"year"  validate:"omitempty,min=2000,max=2100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleListResponse struct {
	Data         []model.Sale    `json:"data"`
	Total        int             `json:"total"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
}

// SalesRangeDashboard summarizes sales between two dates.
type SalesRangeDashboard struct {
	From                  string          `json:"from"`
	To                    string          `json:"to"`
	TopProfitableProducts []model.Product `json:"topProfitableProducts"`
	TotalRevenue          decimal.Decimal `json:"totalRevenue"`
	TotalProfit           decimal.Decimal `json:"totalProfit"`
	ProfitMargin          decimal.Decimal `json:"profitMargin"`
	SalesCount            int             `json:"salesCount"`
}

type SalesRangeFilter struct {
	From  string `form:"from"  validate:"omitempty,datetime=2006-01-02"`
	To    string `form:"to"    validate:"omitempty,datetime=2006-01-02"`
	Limit int    `form:"limit,default=5" validate:"min=1,max=50"`
}
