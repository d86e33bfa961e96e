package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// Source names one of the five independent dashboard queries.
type Source string

const (
	SourceProducts       Source = "products"
	SourceInventories    Source = "inventories"
	SourceLowStock       Source = "low_stock"
	SourceMonthSales     Source = "month_sales"
	SourceMonthlyRevenue Source = "monthly_revenue"
)

// AllSources lists every query the aggregator issues.
var AllSources = []Source{SourceProducts, SourceInventories, SourceLowStock, SourceMonthSales, SourceMonthlyRevenue}

const (
	topProductsLimit = 5
	recentSalesLimit = 10
)

// LowStockItem joins a low-stock inventory record with its product, when known.
type LowStockItem struct {
	Inventory model.Inventory `json:"inventory"`
	Product   *model.Product  `json:"product,omitempty"`
}

// TopProduct is the per-product aggregate for the month.
type TopProduct struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Snapshot is one consistent view of the dashboard for a month.
type Snapshot struct {
	Month int `json:"month"`
	Year  int `json:"year"`

	TotalProducts  int             `json:"totalProducts"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
	LowStockCount  int             `json:"lowStockCount"`
	LowStockItems  []LowStockItem  `json:"lowStockItems"`

	TotalSales     int             `json:"totalSales"`
	MonthlyRevenue decimal.Decimal `json:"monthlyRevenue"`
	MonthlyProfit  decimal.Decimal `json:"monthlyProfit"`
	ProfitMargin   decimal.Decimal `json:"profitMargin"`
	TopProducts    []TopProduct    `json:"topProducts"`
	RecentSales    []model.Sale    `json:"recentSales"`

	// RevenueFromServer is true when MonthlyRevenue came from the store's own aggregation.
	RevenueFromServer bool      `json:"revenueFromServer"`
	FailedSources     []Source  `json:"failedSources,omitempty"`
	Partial           bool      `json:"partial"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// Failed reports whether src degraded to its default in this snapshot.
func (s *Snapshot) Failed(src Source) bool {
	for _, f := range s.FailedSources {
		if f == src {
			return true
		}
	}
	return false
}

// ProfitMargin is profit/revenue as a percentage, 0 unless both are positive.
func ProfitMargin(profit, revenue decimal.Decimal) decimal.Decimal {
	if !profit.IsPositive() || !revenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
}
