// Package apierror holds the domain error taxonomy and the JSON envelope used
// for every 4xx/5xx response. Handlers never write raw internal errors.
package apierror

import (
	"errors"
	"fmt"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validação", Fields: fields}
}

// StockError is returned with 409 so clients can render the exact shortfall.
type StockError struct {
	Detail    string `json:"detail"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// ── Domain errors ────────────────────────────────────────────────────────────

var (
	ErrProductNotFound   = errors.New("produto não encontrado")
	ErrInventoryNotFound = errors.New("inventário não encontrado para o produto")
	ErrSaleNotFound      = errors.New("venda não encontrada")
	ErrGoalNotFound      = errors.New("meta não encontrada")
	// ErrDuplicateInventory means a second inventory record was requested for a product.
	ErrDuplicateInventory = errors.New("produto já possui inventário")
	// ErrInvalidCredentialConfig is the identity provider rejecting the API key.
	ErrInvalidCredentialConfig = errors.New("configuração de credenciais do provedor de identidade inválida")
	ErrInvalidInput            = errors.New("entrada inválida")
)

// InsufficientStockError carries the quantities that made a sale impossible.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("estoque insuficiente: disponível %d, solicitado %d", e.Available, e.Requested)
}

// InsufficientStock builds an *InsufficientStockError.
func InsufficientStock(available, requested int) error {
	return &InsufficientStockError{Available: available, Requested: requested}
}

// Invalid wraps ErrInvalidInput with a field-specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
