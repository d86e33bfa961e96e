package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// DefaultQueryTimeout bounds each source query independently.
const DefaultQueryTimeout = 10 * time.Second

// ErrAllSourcesFailed is returned with an all-default snapshot when no query succeeded.
var ErrAllSourcesFailed = errors.New("dashboard: every data source failed")

// Sources is the read side the aggregator fans out to.
type Sources interface {
	Products(ctx context.Context) ([]model.Product, error)
	Inventories(ctx context.Context) ([]model.Inventory, error)
	LowStock(ctx context.Context) ([]model.Inventory, error)
	SalesBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error)
}

// StoreSources adapts a repository.Store to Sources.
func StoreSources(s repository.Store) Sources { return storeSources{s} }

type storeSources struct{ s repository.Store }

func (s storeSources) Products(ctx context.Context) ([]model.Product, error) {
	return s.s.Products().List(ctx)
}

func (s storeSources) Inventories(ctx context.Context) ([]model.Inventory, error) {
	return s.s.Inventories().List(ctx)
}

func (s storeSources) LowStock(ctx context.Context) ([]model.Inventory, error) {
	return s.s.Inventories().ListLowStock(ctx)
}

func (s storeSources) SalesBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	return s.s.Sales().FindByDateRange(ctx, from, to)
}

func (s storeSources) MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error) {
	return s.s.Sales().MonthlyRevenue(ctx, month, year)
}

// Aggregator computes dashboard snapshots. It holds no per-call state, so
// concurrent invocations never share an accumulator.
type Aggregator struct {
	src     Sources
	timeout time.Duration
	now     func() time.Time
}

type AggregatorOption func(*Aggregator)

func WithQueryTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithNow(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(src Sources, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{src: src, timeout: DefaultQueryTimeout, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// results holds what each branch produced. Every branch writes only its own
// fields, and they are read after the barrier.
type results struct {
	products    []model.Product
	inventories []model.Inventory
	lowStock    []model.Inventory
	sales       []model.Sale
	revenue     decimal.Decimal
	revenueOK   bool

	failed [5]bool
}

// ComputeDashboard issues the five source queries concurrently, waits for all
// of them and combines the results once. A failed or timed-out query
// contributes its empty default. The error is non-nil only when every source
// failed; the snapshot is returned either way.
func (a *Aggregator) ComputeDashboard(ctx context.Context, month, year int) (*Snapshot, error) {
	if month < 1 || month > 12 {
		return nil, apierror.Invalid("mês inválido: %d", month)
	}

	ctx, span := otel.Tracer("dashboard").Start(ctx, "dashboard.ComputeDashboard")
	defer span.End()
	span.SetAttributes(attribute.Int("month", month), attribute.Int("year", year))

	from, to := model.MonthRange(month, year)

	var r results
	var g errgroup.Group

	a.run(&g, ctx, 0, SourceProducts, &r, func(ctx context.Context) (func(), error) {
		v, err := a.src.Products(ctx)
		return func() { r.products = v }, err
	})
	a.run(&g, ctx, 1, SourceInventories, &r, func(ctx context.Context) (func(), error) {
		v, err := a.src.Inventories(ctx)
		return func() { r.inventories = v }, err
	})
	a.run(&g, ctx, 2, SourceLowStock, &r, func(ctx context.Context) (func(), error) {
		v, err := a.src.LowStock(ctx)
		return func() { r.lowStock = v }, err
	})
	a.run(&g, ctx, 3, SourceMonthSales, &r, func(ctx context.Context) (func(), error) {
		v, err := a.src.SalesBetween(ctx, from, to)
		return func() { r.sales = v }, err
	})
	a.run(&g, ctx, 4, SourceMonthlyRevenue, &r, func(ctx context.Context) (func(), error) {
		v, ok, err := a.src.MonthlyRevenue(ctx, month, year)
		return func() { r.revenue, r.revenueOK = v, ok }, err
	})

	// Branches never return an error to the group; failures are recorded in r.failed.
	_ = g.Wait()

	snap := a.combine(&r, month, year)

	if len(snap.FailedSources) == len(AllSources) {
		snapshotsComputed.WithLabelValues("failed").Inc()
		span.SetStatus(codes.Error, ErrAllSourcesFailed.Error())
		return snap, ErrAllSourcesFailed
	}
	if snap.Partial {
		snapshotsComputed.WithLabelValues("partial").Inc()
	} else {
		snapshotsComputed.WithLabelValues("complete").Inc()
	}
	return snap, nil
}

// run starts one branch with its own timeout. The query runs in a separate
// goroutine so a source that ignores its context still degrades on time; a
// late answer is dropped. Only a successful, timely branch commits into r.
func (a *Aggregator) run(g *errgroup.Group, parent context.Context, idx int, src Source, r *results, fn func(ctx context.Context) (func(), error)) {
	type outcome struct {
		commit func()
		err    error
	}
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(parent, a.timeout)
		defer cancel()

		start := time.Now()
		done := make(chan outcome, 1)
		go func() {
			commit, err := fn(ctx)
			done <- outcome{commit, err}
		}()

		var err error
		select {
		case o := <-done:
			err = o.err
			if err == nil {
				o.commit()
			}
		case <-ctx.Done():
			err = fmt.Errorf("%s: %w", src, ctx.Err())
		}
		queryDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())

		if err != nil {
			r.failed[idx] = true
			queryFailures.WithLabelValues(string(src)).Inc()
			log.Warn().Err(err).Str("source", string(src)).Msg("dashboard: source degraded to default")
		}
		return nil
	})
}

func (a *Aggregator) combine(r *results, month, year int) *Snapshot {
	snap := &Snapshot{
		Month:          month,
		Year:           year,
		InventoryValue: decimal.Zero,
		MonthlyRevenue: decimal.Zero,
		MonthlyProfit:  decimal.Zero,
		ProfitMargin:   decimal.Zero,
		LowStockItems:  []LowStockItem{},
		TopProducts:    []TopProduct{},
		RecentSales:    []model.Sale{},
		GeneratedAt:    a.now(),
	}
	for i, f := range r.failed {
		if f {
			snap.FailedSources = append(snap.FailedSources, AllSources[i])
		}
	}
	snap.Partial = len(snap.FailedSources) > 0

	byID := make(map[string]*model.Product, len(r.products))
	for i := range r.products {
		byID[r.products[i].ID] = &r.products[i]
	}
	snap.TotalProducts = len(r.products)

	for _, inv := range r.inventories {
		if p, ok := byID[inv.ProductID]; ok {
			snap.InventoryValue = snap.InventoryValue.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(inv.CurrentStock))))
		}
	}

	for _, inv := range r.lowStock {
		if !inv.IsLowStock() {
			continue
		}
		item := LowStockItem{Inventory: inv}
		if p, ok := byID[inv.ProductID]; ok {
			cp := *p
			item.Product = &cp
		}
		snap.LowStockItems = append(snap.LowStockItems, item)
	}
	snap.LowStockCount = len(snap.LowStockItems)

	snap.TotalSales = len(r.sales)
	clientRevenue := decimal.Zero
	top := map[string]*TopProduct{}
	var order []string
	for _, s := range r.sales {
		if s.Status != model.SaleCompleted {
			continue
		}
		clientRevenue = clientRevenue.Add(s.TotalAmount)
		snap.MonthlyProfit = snap.MonthlyProfit.Add(s.Profit)

		tp, ok := top[s.ProductID]
		if !ok {
			tp = &TopProduct{ProductID: s.ProductID, Revenue: decimal.Zero}
			if p, found := byID[s.ProductID]; found {
				tp.ProductName = p.Name
			}
			top[s.ProductID] = tp
			order = append(order, s.ProductID)
		}
		tp.Quantity += s.Quantity
		tp.Revenue = tp.Revenue.Add(s.TotalAmount)
	}

	if r.revenueOK {
		snap.MonthlyRevenue = r.revenue
		snap.RevenueFromServer = true
	} else {
		snap.MonthlyRevenue = clientRevenue
	}
	snap.ProfitMargin = ProfitMargin(snap.MonthlyProfit, snap.MonthlyRevenue)

	ranked := make([]TopProduct, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *top[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Quantity > ranked[j].Quantity })
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	snap.TopProducts = ranked

	recent := make([]model.Sale, len(r.sales))
	copy(recent, r.sales)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].SaleDate.After(recent[j].SaleDate) })
	if len(recent) > recentSalesLimit {
		recent = recent[:recentSalesLimit]
	}
	snap.RecentSales = recent

	return snap
}
