package dto

import (
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,min=2,max=120"`
	Category    string          `json:"category"    validate:"required"`
	Description string          `json:"description" validate:"max=1000"`
	UnitPrice   decimal.Decimal `json:"unitPrice"   validate:"gte=0"`
	CostPrice   decimal.Decimal `json:"costPrice"   validate:"gte=0"`
	ImageURL    string          `json:"imageUrl"    validate:"omitempty,url"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,min=2,max=120"`
	Category    *string          `json:"category"    validate:"omitempty,min=1"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"   validate:"omitempty,gte=0"`
	CostPrice   *decimal.Decimal `json:"costPrice"   validate:"omitempty,gte=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductListResponse struct {
	Data  []model.Product `json:"data"`
	Total int             `json:"total"`
}
