package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// ── Stub sources ─────────────────────────────────────────────────────────────

type stubSources struct {
	products    func(ctx context.Context) ([]model.Product, error)
	inventories func(ctx context.Context) ([]model.Inventory, error)
	lowStock    func(ctx context.Context) ([]model.Inventory, error)
	sales       func(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	revenue     func(ctx context.Context, month, year int) (decimal.Decimal, bool, error)
}

var _ Sources = (*stubSources)(nil)

func (s *stubSources) Products(ctx context.Context) ([]model.Product, error) {
	if s.products == nil {
		return nil, nil
	}
	return s.products(ctx)
}

func (s *stubSources) Inventories(ctx context.Context) ([]model.Inventory, error) {
	if s.inventories == nil {
		return nil, nil
	}
	return s.inventories(ctx)
}

func (s *stubSources) LowStock(ctx context.Context) ([]model.Inventory, error) {
	if s.lowStock == nil {
		return nil, nil
	}
	return s.lowStock(ctx)
}

func (s *stubSources) SalesBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	if s.sales == nil {
		return nil, nil
	}
	return s.sales(ctx, from, to)
}

func (s *stubSources) MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error) {
	if s.revenue == nil {
		return decimal.Zero, false, nil
	}
	return s.revenue(ctx, month, year)
}

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedNow() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }

func newTestAggregator(src Sources, opts ...AggregatorOption) *Aggregator {
	return NewAggregator(src, append([]AggregatorOption{WithNow(fixedNow)}, opts...)...)
}

func sale(id, productID string, qty int, total, profit string, status model.SaleStatus, day int) model.Sale {
	return model.Sale{
		ID:          id,
		ProductID:   productID,
		Quantity:    qty,
		TotalAmount: dec(total),
		Profit:      dec(profit),
		Status:      status,
		SaleDate:    time.Date(2024, 5, day, 9, 0, 0, 0, time.UTC),
	}
}

func fullSources() *stubSources {
	products := []model.Product{
		{ID: "p1", Name: "Alface", UnitPrice: dec("4.00")},
		{ID: "p2", Name: "Tomate", UnitPrice: dec("10.00")},
	}
	invs := []model.Inventory{
		{ID: "i1", ProductID: "p1", CurrentStock: 5, MinimumStock: 10},
		{ID: "i2", ProductID: "p2", CurrentStock: 20, MinimumStock: 10},
		{ID: "i3", ProductID: "ghost", CurrentStock: 100, MinimumStock: 1},
	}
	sales := []model.Sale{
		sale("s1", "p1", 3, "12.00", "6.00", model.SaleCompleted, 2),
		sale("s2", "p2", 1, "10.00", "4.00", model.SaleCompleted, 5),
		sale("s3", "p2", 4, "40.00", "16.00", model.SalePending, 7),
	}
	return &stubSources{
		products:    func(context.Context) ([]model.Product, error) { return products, nil },
		inventories: func(context.Context) ([]model.Inventory, error) { return invs, nil },
		lowStock: func(context.Context) ([]model.Inventory, error) {
			// the store may return a record that is no longer low; it must be filtered
			return []model.Inventory{invs[0], invs[1]}, nil
		},
		sales: func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return sales, nil },
	}
}

// ── ComputeDashboard ─────────────────────────────────────────────────────────

func TestComputeDashboard_AllSourcesSucceed(t *testing.T) {
	agg := newTestAggregator(fullSources())

	snap, err := agg.ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)

	assert.False(t, snap.Partial)
	assert.Empty(t, snap.FailedSources)
	assert.Equal(t, 2, snap.TotalProducts)
	// 5*4 + 20*10; the inventory of an unknown product contributes nothing
	assert.True(t, snap.InventoryValue.Equal(dec("220")), "inventory value %s", snap.InventoryValue)

	require.Equal(t, 1, snap.LowStockCount)
	assert.Equal(t, "i1", snap.LowStockItems[0].Inventory.ID)
	require.NotNil(t, snap.LowStockItems[0].Product)
	assert.Equal(t, "Alface", snap.LowStockItems[0].Product.Name)

	assert.Equal(t, 3, snap.TotalSales, "every status counts as a sale")
	assert.True(t, snap.MonthlyRevenue.Equal(dec("22")), "only completed sales add revenue")
	assert.True(t, snap.MonthlyProfit.Equal(dec("10")))
	assert.True(t, snap.ProfitMargin.Equal(dec("45.45")), "margin %s", snap.ProfitMargin)
	assert.False(t, snap.RevenueFromServer)

	require.Len(t, snap.RecentSales, 3)
	assert.Equal(t, "s3", snap.RecentSales[0].ID, "newest first")
	assert.Equal(t, fixedNow(), snap.GeneratedAt)
}

func TestComputeDashboard_PrefersServerRevenue(t *testing.T) {
	src := fullSources()
	src.revenue = func(context.Context, int, int) (decimal.Decimal, bool, error) {
		return dec("99.90"), true, nil
	}
	snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)

	assert.True(t, snap.RevenueFromServer)
	assert.True(t, snap.MonthlyRevenue.Equal(dec("99.90")))
}

func TestComputeDashboard_PartialFailureUsesDefaults(t *testing.T) {
	cases := []struct {
		name   string
		breakF func(s *stubSources)
		failed Source
		check  func(t *testing.T, snap *Snapshot)
	}{
		{
			name: "products",
			breakF: func(s *stubSources) {
				s.products = func(context.Context) ([]model.Product, error) { return nil, errBoom }
			},
			failed: SourceProducts,
			check: func(t *testing.T, snap *Snapshot) {
				assert.Zero(t, snap.TotalProducts)
				assert.True(t, snap.InventoryValue.IsZero(), "no prices without products")
				assert.Equal(t, 3, snap.TotalSales)
			},
		},
		{
			name: "inventories",
			breakF: func(s *stubSources) {
				s.inventories = func(context.Context) ([]model.Inventory, error) { return nil, errBoom }
			},
			failed: SourceInventories,
			check: func(t *testing.T, snap *Snapshot) {
				assert.True(t, snap.InventoryValue.IsZero())
				assert.Equal(t, 1, snap.LowStockCount)
			},
		},
		{
			name: "low stock",
			breakF: func(s *stubSources) {
				s.lowStock = func(context.Context) ([]model.Inventory, error) { return nil, errBoom }
			},
			failed: SourceLowStock,
			check: func(t *testing.T, snap *Snapshot) {
				assert.Zero(t, snap.LowStockCount)
				assert.NotNil(t, snap.LowStockItems)
			},
		},
		{
			name: "month sales",
			breakF: func(s *stubSources) {
				s.sales = func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return nil, errBoom }
			},
			failed: SourceMonthSales,
			check: func(t *testing.T, snap *Snapshot) {
				assert.Zero(t, snap.TotalSales)
				assert.True(t, snap.MonthlyRevenue.IsZero())
				assert.Empty(t, snap.TopProducts)
				assert.Equal(t, 2, snap.TotalProducts)
			},
		},
		{
			name: "monthly revenue",
			breakF: func(s *stubSources) {
				s.revenue = func(context.Context, int, int) (decimal.Decimal, bool, error) {
					return decimal.Zero, false, errBoom
				}
			},
			failed: SourceMonthlyRevenue,
			check: func(t *testing.T, snap *Snapshot) {
				assert.False(t, snap.RevenueFromServer)
				assert.True(t, snap.MonthlyRevenue.Equal(dec("22")), "falls back to the sales sum")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := fullSources()
			tc.breakF(src)

			snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
			require.NoError(t, err)
			require.NotNil(t, snap)

			assert.True(t, snap.Partial)
			assert.Equal(t, []Source{tc.failed}, snap.FailedSources)
			assert.True(t, snap.Failed(tc.failed))
			tc.check(t, snap)
		})
	}
}

func TestComputeDashboard_AllFail(t *testing.T) {
	src := &stubSources{
		products:    func(context.Context) ([]model.Product, error) { return nil, errBoom },
		inventories: func(context.Context) ([]model.Inventory, error) { return nil, errBoom },
		lowStock:    func(context.Context) ([]model.Inventory, error) { return nil, errBoom },
		sales:       func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return nil, errBoom },
		revenue: func(context.Context, int, int) (decimal.Decimal, bool, error) {
			return decimal.Zero, false, errBoom
		},
	}
	snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)

	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	require.NotNil(t, snap)
	assert.Len(t, snap.FailedSources, len(AllSources))
	assert.Zero(t, snap.TotalProducts)
	assert.True(t, snap.MonthlyRevenue.IsZero())
}

func TestComputeDashboard_SlowSourceTimesOut(t *testing.T) {
	src := fullSources()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	// ignores its context entirely
	src.products = func(context.Context) ([]model.Product, error) {
		<-release
		return []model.Product{{ID: "late"}}, nil
	}

	agg := newTestAggregator(src, WithQueryTimeout(50*time.Millisecond))
	start := time.Now()
	snap, err := agg.ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, snap.Failed(SourceProducts))
	assert.Zero(t, snap.TotalProducts)
	assert.Equal(t, 3, snap.TotalSales, "other sources still land")
}

func TestComputeDashboard_QueriesRunConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	enter := func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
	}
	src := &stubSources{
		products:    func(context.Context) ([]model.Product, error) { enter(); return nil, nil },
		inventories: func(context.Context) ([]model.Inventory, error) { enter(); return nil, nil },
		lowStock:    func(context.Context) ([]model.Inventory, error) { enter(); return nil, nil },
		sales:       func(context.Context, time.Time, time.Time) ([]model.Sale, error) { enter(); return nil, nil },
		revenue: func(context.Context, int, int) (decimal.Decimal, bool, error) {
			enter()
			return decimal.Zero, false, nil
		},
	}
	_, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestComputeDashboard_MonthBoundsPassedToSales(t *testing.T) {
	var gotFrom, gotTo time.Time
	src := &stubSources{
		sales: func(_ context.Context, from, to time.Time) ([]model.Sale, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	_, err := newTestAggregator(src).ComputeDashboard(context.Background(), 2, 2024)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), gotTo, "end is the next month's first instant")
}

func TestComputeDashboard_EveryFailureCombination(t *testing.T) {
	broken := map[Source]func(s *stubSources){
		SourceProducts: func(s *stubSources) {
			s.products = func(context.Context) ([]model.Product, error) { return nil, errBoom }
		},
		SourceInventories: func(s *stubSources) {
			s.inventories = func(context.Context) ([]model.Inventory, error) { return nil, errBoom }
		},
		SourceLowStock: func(s *stubSources) {
			s.lowStock = func(context.Context) ([]model.Inventory, error) { return nil, errBoom }
		},
		SourceMonthSales: func(s *stubSources) {
			s.sales = func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return nil, errBoom }
		},
		SourceMonthlyRevenue: func(s *stubSources) {
			s.revenue = func(context.Context, int, int) (decimal.Decimal, bool, error) {
				return decimal.Zero, false, errBoom
			}
		},
	}
	require.Len(t, broken, len(AllSources))

	for mask := 0; mask < 1<<len(AllSources); mask++ {
		src := fullSources()
		src.revenue = func(context.Context, int, int) (decimal.Decimal, bool, error) {
			return dec("99.90"), true, nil
		}
		down := map[Source]bool{}
		var want []Source
		for i, s := range AllSources {
			if mask&(1<<i) != 0 {
				broken[s](src)
				down[s] = true
				want = append(want, s)
			}
		}

		t.Run(fmt.Sprintf("mask=%05b", mask), func(t *testing.T) {
			snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
			require.NotNil(t, snap)
			if len(want) == len(AllSources) {
				assert.ErrorIs(t, err, ErrAllSourcesFailed)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, want, snap.FailedSources)
			assert.Equal(t, mask != 0, snap.Partial)
			for _, s := range AllSources {
				assert.Equal(t, down[s], snap.Failed(s), "source %s", s)
			}

			if down[SourceProducts] {
				assert.Zero(t, snap.TotalProducts)
			} else {
				assert.Equal(t, 2, snap.TotalProducts)
			}

			if down[SourceProducts] || down[SourceInventories] {
				assert.True(t, snap.InventoryValue.IsZero())
			} else {
				assert.True(t, snap.InventoryValue.Equal(dec("220")))
			}

			if down[SourceLowStock] {
				assert.Zero(t, snap.LowStockCount)
				assert.NotNil(t, snap.LowStockItems)
			} else {
				require.Equal(t, 1, snap.LowStockCount)
				assert.Equal(t, !down[SourceProducts], snap.LowStockItems[0].Product != nil)
			}

			clientRevenue, profit, sales := dec("22"), dec("10"), 3
			if down[SourceMonthSales] {
				clientRevenue, profit, sales = decimal.Zero, decimal.Zero, 0
			}
			assert.Equal(t, sales, snap.TotalSales)
			assert.Len(t, snap.RecentSales, sales)
			assert.True(t, snap.MonthlyProfit.Equal(profit))

			assert.Equal(t, !down[SourceMonthlyRevenue], snap.RevenueFromServer)
			if down[SourceMonthlyRevenue] {
				assert.True(t, snap.MonthlyRevenue.Equal(clientRevenue), "revenue %s", snap.MonthlyRevenue)
			} else {
				assert.True(t, snap.MonthlyRevenue.Equal(dec("99.90")))
			}

			if !down[SourceMonthSales] {
				require.NotEmpty(t, snap.TopProducts)
				names := map[string]string{}
				for _, tp := range snap.TopProducts {
					names[tp.ProductID] = tp.ProductName
				}
				if down[SourceProducts] {
					assert.Empty(t, names["p1"])
				} else {
					assert.Equal(t, "Alface", names["p1"])
				}
			} else {
				assert.Empty(t, snap.TopProducts)
			}
		})
	}
}

func TestComputeDashboard_InvalidMonth(t *testing.T) {
	_, err := newTestAggregator(&stubSources{}).ComputeDashboard(context.Background(), 13, 2024)
	assert.Error(t, err)
}

func TestComputeDashboard_TopProductsOrder(t *testing.T) {
	var sales []model.Sale
	// p1..p7 with quantities 2,5,2,1,5,3,2; ties keep first-seen order
	qty := []int{2, 5, 2, 1, 5, 3, 2}
	for i, q := range qty {
		sales = append(sales, sale(fmt.Sprintf("s%d", i), fmt.Sprintf("p%d", i+1), q, "1", "0.5", model.SaleCompleted, 1+i))
	}
	src := &stubSources{
		sales: func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return sales, nil },
	}
	snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)

	var ids []string
	for _, tp := range snap.TopProducts {
		ids = append(ids, tp.ProductID)
	}
	assert.Equal(t, []string{"p2", "p5", "p6", "p1", "p3"}, ids)
}

func TestComputeDashboard_RecentSalesCapped(t *testing.T) {
	var sales []model.Sale
	for i := 1; i <= 15; i++ {
		sales = append(sales, sale(fmt.Sprintf("s%02d", i), "p1", 1, "1", "0", model.SaleCompleted, i))
	}
	src := &stubSources{
		sales: func(context.Context, time.Time, time.Time) ([]model.Sale, error) { return sales, nil },
	}
	snap, err := newTestAggregator(src).ComputeDashboard(context.Background(), 5, 2024)
	require.NoError(t, err)

	require.Len(t, snap.RecentSales, 10)
	assert.Equal(t, "s15", snap.RecentSales[0].ID)
	assert.Equal(t, "s06", snap.RecentSales[9].ID)
}

// ── Profit margin ────────────────────────────────────────────────────────────

func TestProfitMargin(t *testing.T) {
	assert.True(t, ProfitMargin(dec("25"), dec("100")).Equal(dec("25")))
	assert.True(t, ProfitMargin(dec("1"), dec("3")).Equal(dec("33.33")))
	assert.True(t, ProfitMargin(decimal.Zero, dec("100")).IsZero())
	assert.True(t, ProfitMargin(dec("-5"), dec("100")).IsZero(), "negative profit reports zero")
	assert.True(t, ProfitMargin(dec("5"), decimal.Zero).IsZero())
}
