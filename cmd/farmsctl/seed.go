package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

type seedResult struct {
	Products int
	Sales    int
	Goals    int
}

type demoProduct struct {
	name, category  string
	unit, cost      string
	stock, minStock int
}

var demoProducts = []demoProduct{
	{"Alface Crespa", "Hortaliças", "4.50", "1.80", 120, 20},
	{"Tomate Italiano", "Hortaliças", "8.90", "4.10", 80, 15},
	{"Cenoura", "Legumes", "5.20", "2.30", 60, 10},
	{"Milho Verde", "Grãos", "12.00", "6.50", 8, 10},
	{"Morango", "Frutas", "15.90", "7.80", 40, 5},
	{"Mel Silvestre", "Derivados", "32.00", "18.00", 12, 4},
}

// seedDemo goes through the services so seeded data obeys the same rules as
// API writes: margins are derived, stock moves are recorded.
func seedDemo(ctx context.Context, store repository.Store, now time.Time) (seedResult, error) {
	var res seedResult
	locker := infra.NewLocalLocker()
	products := service.NewProductService(store, infra.NopPublisher{}, nil)
	inventory := service.NewInventoryService(store, locker, infra.NopPublisher{}, service.NopDispatcher{})
	sales := service.NewSaleService(store, locker, infra.NopPublisher{}, service.NopDispatcher{})
	goals := service.NewGoalService(store.Goals())

	var ids []string
	for _, d := range demoProducts {
		p, err := products.CreateProduct(ctx, dto.CreateProductRequest{
			Name:      d.name,
			Category:  d.category,
			UnitPrice: decimal.RequireFromString(d.unit),
			CostPrice: decimal.RequireFromString(d.cost),
		})
		if err != nil {
			return res, fmt.Errorf("seed product %s: %w", d.name, err)
		}
		minStock := d.minStock
		cost := decimal.RequireFromString(d.cost)
		if _, err := inventory.AddStock(ctx, dto.AddStockRequest{
			ProductID:    p.ID,
			Quantity:     d.stock,
			UnitPrice:    &cost,
			Reason:       "Estoque inicial",
			MinimumStock: &minStock,
			PerformedBy:  "farmsctl",
		}); err != nil {
			return res, fmt.Errorf("seed stock %s: %w", d.name, err)
		}
		ids = append(ids, p.ID)
		res.Products++
	}

	methods := []model.PaymentMethod{model.PaymentPix, model.PaymentCash, model.PaymentCreditCard}
	for i := 0; i < 12; i++ {
		date := now.AddDate(0, 0, -i)
		if _, err := sales.CreateSale(ctx, dto.CreateSaleRequest{
			ProductID:      ids[i%len(ids)],
			Quantity:       1 + i%3,
			SaleDate:       &date,
			PaymentMethod:  methods[i%len(methods)],
			CustomerName:   fmt.Sprintf("Cliente %02d", i+1),
			IdempotencyKey: fmt.Sprintf("seed-%s-%02d", now.Format("20060102"), i),
			PerformedBy:    "farmsctl",
		}); err != nil {
			return res, fmt.Errorf("seed sale %d: %w", i, err)
		}
		res.Sales++
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, g := range []dto.CreateGoalRequest{
		{Title: "Faturamento do mês", Type: model.GoalSalesRevenue, TargetValue: decimal.NewFromInt(5000), Unit: "R$"},
		{Title: "Volume de hortaliças", Type: model.GoalSalesVolume, TargetValue: decimal.NewFromInt(300), Unit: "un", Category: "Hortaliças"},
	} {
		g.StartDate = start
		g.EndDate = start.AddDate(0, 1, 0).Add(-time.Second)
		if _, err := goals.Create(ctx, g); err != nil {
			return res, fmt.Errorf("seed goal %s: %w", g.Title, err)
		}
		res.Goals++
	}
	return res, nil
}
