package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type CreateGoalRequest struct {
	Title       string          `json:"title"       validate:"required,min=2,max=120"`
	Description string          `json:"description"`
	Type        model.GoalType  `json:"type"        validate:"required,oneof=sales_revenue sales_volume production_volume profit_margin customer_acquisition"`
	TargetValue decimal.Decimal `json:"targetValue" validate:"gt=0"`
	Unit        string          `json:"unit"        validate:"max=20"`
	StartDate   time.Time       `json:"startDate"   validate:"required"`
	EndDate     time.Time       `json:"endDate"     validate:"required,gtfield=StartDate"`
	ProductID   string          `json:"productId"`
	Category    string          `json:"category"`
}

type UpdateGoalProgressRequest struct {
	CurrentValue decimal.Decimal `json:"currentValue" validate:"gte=0"`
}

type GoalProgress struct {
	Goal     model.Goal `json:"goal"`
	Progress int        `json:"progress"`
}

type GoalSummary struct {
	OverallProgress int            `json:"overallProgress"`
	AchievedCount   int            `json:"achievedCount"`
	Goals           []GoalProgress `json:"goals"`
}
