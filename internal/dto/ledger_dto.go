package dto

import "github.com/shopspring/decimal"

type LedgerTransactionRequest struct {
	Kind        string          `json:"kind"        validate:"required,oneof=deposit withdraw transfer"`
	Amount      decimal.Decimal `json:"amount"      validate:"gt=0"`
	Description string          `json:"description" validate:"max=200"`
	Counterpart string          `json:"counterpart" validate:"required_if=Kind transfer"`
}
