package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type GoalType string

const (
	GoalSalesRevenue        GoalType = "sales_revenue"
	GoalSalesVolume         GoalType = "sales_volume"
	GoalProductionVolume    GoalType = "production_volume"
	GoalProfitMargin        GoalType = "profit_margin"
	GoalCustomerAcquisition GoalType = "customer_acquisition"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalAchieved  GoalStatus = "achieved"
	GoalOverdue   GoalStatus = "overdue"
	GoalCancelled GoalStatus = "cancelled"
)

// Goal is a business target tracked over a date window, optionally scoped to
// a product or a category.
type Goal struct {
	ID           string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `json:"description,omitempty"`
	Type         GoalType        `gorm:"type:varchar(32);not null;index" json:"type"`
	TargetValue  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"targetValue"`
	CurrentValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"currentValue"`
	Unit         string          `json:"unit"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
	Status       GoalStatus      `gorm:"type:varchar(16);not null;index" json:"status"`
	ProductID    string          `gorm:"type:varchar(64)" json:"productId,omitempty"`
	Category     string          `json:"category,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Progress is current/target as a rounded percentage capped at 100.
func (g Goal) Progress() int {
	if !g.TargetValue.IsPositive() {
		return 0
	}
	ratio, _ := g.CurrentValue.Div(g.TargetValue).Float64()
	return int(math.Min(math.Round(ratio*100), 100))
}

// Covers reports whether t falls inside the goal window.
func (g Goal) Covers(t time.Time) bool {
	return !t.Before(g.StartDate) && !t.After(g.EndDate)
}

// ResolveStatus returns the status the goal should hold at now.
func (g Goal) ResolveStatus(now time.Time) GoalStatus {
	if g.Status == GoalCancelled {
		return GoalCancelled
	}
	if g.Progress() >= 100 {
		return GoalAchieved
	}
	if now.After(g.EndDate) {
		return GoalOverdue
	}
	return GoalActive
}
