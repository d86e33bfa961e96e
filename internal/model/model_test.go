package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIsLowStock_Boundary(t *testing.T) {
	assert.True(t, Inventory{CurrentStock: 9, MinimumStock: 10}.IsLowStock())
	assert.False(t, Inventory{CurrentStock: 10, MinimumStock: 10}.IsLowStock(), "at the minimum is not low")
	assert.False(t, Inventory{CurrentStock: 11, MinimumStock: 10}.IsLowStock())
	assert.False(t, Inventory{CurrentStock: 0, MinimumStock: 0}.IsLowStock())
}

func TestWeightedAverageCost(t *testing.T) {
	avg := WeightedAverageCost(10, d("4"), 10, d("6"))
	assert.True(t, avg.Equal(d("5")), "got %s", avg)

	// non-positive price keeps the previous average
	assert.True(t, WeightedAverageCost(10, d("4"), 5, decimal.Zero).Equal(d("4")))

	// empty stock adopts the lot price
	assert.True(t, WeightedAverageCost(0, decimal.Zero, 7, d("3.5")).Equal(d("3.5")))
}

func TestSaleTotals(t *testing.T) {
	total, profit := SaleTotals(5, d("8.50"), d("4.20"))
	assert.True(t, total.Equal(d("42.5")), "total %s", total)
	assert.True(t, profit.Equal(d("21.5")), "profit %s", profit)

	// selling below cost yields a negative profit
	_, loss := SaleTotals(2, d("3"), d("4"))
	assert.True(t, loss.Equal(d("-2")))
}

func TestApplyMovement(t *testing.T) {
	assert.Equal(t, 15, ApplyMovement(10, MovementIn, 5))
	assert.Equal(t, 5, ApplyMovement(10, MovementOut, 5))
	assert.Equal(t, 0, ApplyMovement(3, MovementOut, 5), "outbound clamps at zero")
	assert.Equal(t, 42, ApplyMovement(10, MovementAdjustment, 42))
	assert.Equal(t, 0, ApplyMovement(10, MovementAdjustment, -1))
	assert.Equal(t, 10, ApplyMovement(10, MovementType("bogus"), 3))
}

func TestProfitMarginFor(t *testing.T) {
	assert.True(t, ProfitMarginFor(d("15"), d("10")).Equal(d("50")))
	assert.True(t, ProfitMarginFor(d("15"), decimal.Zero).IsZero())
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2, 2024)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)

	// a sale in the last millisecond of the month falls inside
	last := time.Date(2024, 2, 29, 23, 59, 59, 999_500_000, time.UTC)
	assert.True(t, !last.Before(start) && last.Before(end))

	start, end = MonthRange(12, 2023)
	assert.Equal(t, time.UTC, start.Location())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestCurrentMonth(t *testing.T) {
	// 23:30 on Jan 31 in São Paulo is already February in UTC
	sp := time.FixedZone("BRT", -3*60*60)
	month, year := CurrentMonth(time.Date(2024, 1, 31, 23, 30, 0, 0, sp))
	assert.Equal(t, 2, month)
	assert.Equal(t, 2024, year)

	month, year = CurrentMonth(time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC))
	assert.Equal(t, 12, month)
	assert.Equal(t, 2023, year)
}

func TestGoalProgressAndStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	g := Goal{
		TargetValue:  d("200"),
		CurrentValue: d("50"),
		StartDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
		Status:       GoalActive,
	}
	assert.Equal(t, 25, g.Progress())
	assert.Equal(t, GoalActive, g.ResolveStatus(now))
	assert.True(t, g.Covers(now))

	g.CurrentValue = d("500")
	assert.Equal(t, 100, g.Progress(), "progress is capped")
	assert.Equal(t, GoalAchieved, g.ResolveStatus(now))

	g.CurrentValue = d("10")
	assert.Equal(t, GoalOverdue, g.ResolveStatus(g.EndDate.Add(time.Second)))

	g.TargetValue = decimal.Zero
	assert.Equal(t, 0, g.Progress())

	g.Status = GoalCancelled
	assert.Equal(t, GoalCancelled, g.ResolveStatus(now))
}
