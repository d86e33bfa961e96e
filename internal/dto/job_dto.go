package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalProgressJob carries a completed sale to the goal worker.
type GoalProgressJob struct {
	SaleID    string          `json:"saleId"`
	ProductID string          `json:"productId"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
	SaleDate  time.Time       `json:"saleDate"`
}

// LowStockJob asks the alert worker to mail the configured recipient.
type LowStockJob struct {
	InventoryID  string `json:"inventoryId"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	CurrentStock int    `json:"currentStock"`
	MinimumStock int    `json:"minimumStock"`
}

// ReportEmailJob mails a generated report file.
type ReportEmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Path    string `json:"path"`
}
