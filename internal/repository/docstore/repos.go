package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

// ── Products ─────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

func (r productRepo) ref(id string) *firestore.DocumentRef {
	return r.s.col(repository.CollectionProducts).Doc(id)
}

func (r productRepo) Create(ctx context.Context, p *model.Product) error {
	repository.EnsureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.s.create(ctx, r.ref(p.ID), toProductDoc(p))
}

func (r productRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	snap, err := r.s.get(ctx, r.ref(id))
	if err != nil {
		return nil, mapNotFound(err, apierror.ErrProductNotFound)
	}
	p, err := productFrom(snap)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r productRepo) List(ctx context.Context) ([]model.Product, error) {
	snaps, err := r.s.query(ctx, r.s.col(repository.CollectionProducts).OrderBy("name", firestore.Asc))
	if err != nil {
		return nil, err
	}
	return decode(snaps, productFrom)
}

func (r productRepo) TopByProfitMargin(ctx context.Context, n int) ([]model.Product, error) {
	q := r.s.col(repository.CollectionProducts).OrderBy("profitMargin", firestore.Desc).Limit(n)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decode(snaps, productFrom)
}

func (r productRepo) Update(ctx context.Context, p *model.Product) error {
	err := r.s.update(ctx, r.ref(p.ID), []firestore.Update{
		{Path: "name", Value: p.Name},
		{Path: "category", Value: p.Category},
		{Path: "description", Value: p.Description},
		{Path: "unitPrice", Value: p.UnitPrice.InexactFloat64()},
		{Path: "costPrice", Value: p.CostPrice.InexactFloat64()},
		{Path: "profitMargin", Value: p.ProfitMargin.InexactFloat64()},
		{Path: "imageUrl", Value: p.ImageURL},
		{Path: "thumbnailUrl", Value: p.ThumbnailURL},
		{Path: "updatedAt", Value: p.UpdatedAt},
	})
	return mapNotFound(err, apierror.ErrProductNotFound)
}

func (r productRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.get(ctx, r.ref(id)); err != nil {
		return mapNotFound(err, apierror.ErrProductNotFound)
	}
	return r.s.delete(ctx, r.ref(id))
}

// ── Inventories ──────────────────────────────────────────────────────────────

type inventoryRepo struct{ s *Store }

// inventoryDocID gives every product a single, deterministic inventory document.
func inventoryDocID(productID string) string { return "inv_" + productID }

func (r inventoryRepo) ref(id string) *firestore.DocumentRef {
	return r.s.col(repository.CollectionInventories).Doc(id)
}

func (r inventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	inv.ID = inventoryDocID(inv.ProductID)
	stamp(&inv.CreatedAt, &inv.UpdatedAt)
	err := r.s.create(ctx, r.ref(inv.ID), toInventoryDoc(inv))
	if isAlreadyExists(err) {
		return apierror.ErrDuplicateInventory
	}
	return err
}

func (r inventoryRepo) FindByID(ctx context.Context, id string) (*model.Inventory, error) {
	snap, err := r.s.get(ctx, r.ref(id))
	if err != nil {
		return nil, mapNotFound(err, apierror.ErrInventoryNotFound)
	}
	inv, err := inventoryFrom(snap)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r inventoryRepo) FindByProductID(ctx context.Context, productID string) (*model.Inventory, error) {
	q := r.s.col(repository.CollectionInventories).Where("productId", "==", productID).Limit(1)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, apierror.ErrInventoryNotFound
	}
	inv, err := inventoryFrom(snaps[0])
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r inventoryRepo) List(ctx context.Context) ([]model.Inventory, error) {
	snaps, err := r.s.query(ctx, r.s.col(repository.CollectionInventories).Query)
	if err != nil {
		return nil, err
	}
	return decode(snaps, inventoryFrom)
}

// ListLowStock filters client-side: Firestore cannot compare two fields of
// the same document in a query.
func (r inventoryRepo) ListLowStock(ctx context.Context) ([]model.Inventory, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Inventory
	for _, inv := range all {
		if inv.IsLowStock() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r inventoryRepo) UpdateStock(ctx context.Context, inv *model.Inventory) error {
	err := r.s.update(ctx, r.ref(inv.ID), []firestore.Update{
		{Path: "currentStock", Value: inv.CurrentStock},
		{Path: "averageCost", Value: inv.AverageCost.InexactFloat64()},
		{Path: "lastStockUpdate", Value: inv.LastStockUpdate},
		{Path: "updatedAt", Value: inv.UpdatedAt},
	})
	return mapNotFound(err, apierror.ErrInventoryNotFound)
}

// DecrementStock reads then writes; inside RunInTx Firestore retries the
// transaction when the document changed underneath.
func (r inventoryRepo) DecrementStock(ctx context.Context, id string, qty int, at time.Time) (int, error) {
	inv, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if inv.CurrentStock < qty {
		return inv.CurrentStock, apierror.InsufficientStock(inv.CurrentStock, qty)
	}
	next := inv.CurrentStock - qty
	err = r.s.update(ctx, r.ref(id), []firestore.Update{
		{Path: "currentStock", Value: next},
		{Path: "lastStockUpdate", Value: at},
		{Path: "updatedAt", Value: at},
	})
	if err != nil {
		return inv.CurrentStock, err
	}
	return next, nil
}

// ── Stock movements ──────────────────────────────────────────────────────────

type movementRepo struct{ s *Store }

func (r movementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	repository.EnsureID(&m.ID)
	if m.PerformedAt.IsZero() {
		m.PerformedAt = time.Now()
	}
	return r.s.create(ctx, r.s.col(repository.CollectionStockMovements).Doc(m.ID), toMovementDoc(m))
}

func (r movementRepo) ListByInventory(ctx context.Context, inventoryID string, limit int) ([]model.StockMovement, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	q := r.s.col(repository.CollectionStockMovements).
		Where("inventoryId", "==", inventoryID).
		OrderBy("performedAt", firestore.Desc).
		Limit(limit)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decode(snaps, movementFrom)
}

// ── Sales ────────────────────────────────────────────────────────────────────

type saleRepo struct{ s *Store }

func (r saleRepo) ref(id string) *firestore.DocumentRef {
	return r.s.col(repository.CollectionSales).Doc(id)
}

func (r saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	repository.EnsureID(&sale.ID)
	stamp(&sale.CreatedAt, &sale.UpdatedAt)
	return r.s.create(ctx, r.ref(sale.ID), toSaleDoc(sale))
}

func (r saleRepo) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	snap, err := r.s.get(ctx, r.ref(id))
	if err != nil {
		return nil, mapNotFound(err, apierror.ErrSaleNotFound)
	}
	sale, err := saleFrom(snap)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r saleRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Sale, error) {
	q := r.s.col(repository.CollectionSales).Where("idempotencyKey", "==", key).Limit(1)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, apierror.ErrSaleNotFound
	}
	sale, err := saleFrom(snaps[0])
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r saleRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	q := r.s.col(repository.CollectionSales).
		Where("saleDate", ">=", from).
		Where("saleDate", "<", to).
		OrderBy("saleDate", firestore.Desc)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decode(snaps, saleFrom)
}

func (r saleRepo) Recent(ctx context.Context, n int) ([]model.Sale, error) {
	q := r.s.col(repository.CollectionSales).OrderBy("saleDate", firestore.Desc).Limit(n)
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decode(snaps, saleFrom)
}

// MonthlyRevenue runs a server-side SUM aggregation over completed sales.
func (r saleRepo) MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error) {
	from, to := model.MonthRange(month, year)
	q := r.s.col(repository.CollectionSales).
		Where("status", "==", string(model.SaleCompleted)).
		Where("saleDate", ">=", from).
		Where("saleDate", "<", to)

	res, err := q.NewAggregationQuery().WithSum("totalAmount", "revenue").Get(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	raw, ok := res["revenue"]
	if !ok {
		return decimal.Zero, false, nil
	}
	v, ok := raw.(*firestorepb.Value)
	if !ok {
		return decimal.Zero, false, nil
	}
	switch v.GetValueType().(type) {
	case *firestorepb.Value_DoubleValue:
		return decimal.NewFromFloat(v.GetDoubleValue()), true, nil
	case *firestorepb.Value_IntegerValue:
		return decimal.NewFromInt(v.GetIntegerValue()), true, nil
	default:
		return decimal.Zero, false, nil
	}
}

func (r saleRepo) UpdateStatus(ctx context.Context, id string, status model.SaleStatus) error {
	err := r.s.update(ctx, r.ref(id), []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: time.Now()},
	})
	return mapNotFound(err, apierror.ErrSaleNotFound)
}

// ── Goals ────────────────────────────────────────────────────────────────────

type goalRepo struct{ s *Store }

func (r goalRepo) ref(id string) *firestore.DocumentRef {
	return r.s.col(repository.CollectionGoals).Doc(id)
}

func (r goalRepo) Create(ctx context.Context, g *model.Goal) error {
	repository.EnsureID(&g.ID)
	stamp(&g.CreatedAt, &g.UpdatedAt)
	return r.s.create(ctx, r.ref(g.ID), toGoalDoc(g))
}

func (r goalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	snap, err := r.s.get(ctx, r.ref(id))
	if err != nil {
		return nil, mapNotFound(err, apierror.ErrGoalNotFound)
	}
	g, err := goalFrom(snap)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r goalRepo) List(ctx context.Context) ([]model.Goal, error) {
	snaps, err := r.s.query(ctx, r.s.col(repository.CollectionGoals).OrderBy("endDate", firestore.Asc))
	if err != nil {
		return nil, err
	}
	return decode(snaps, goalFrom)
}

// ListActive filters the window client-side; Firestore allows range filters
// on a single field only.
func (r goalRepo) ListActive(ctx context.Context, at time.Time) ([]model.Goal, error) {
	q := r.s.col(repository.CollectionGoals).Where("status", "==", string(model.GoalActive))
	snaps, err := r.s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	goals, err := decode(snaps, goalFrom)
	if err != nil {
		return nil, err
	}
	out := goals[:0]
	for _, g := range goals {
		if g.Covers(at) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r goalRepo) Update(ctx context.Context, g *model.Goal) error {
	if _, err := r.s.get(ctx, r.ref(g.ID)); err != nil {
		return mapNotFound(err, apierror.ErrGoalNotFound)
	}
	return r.s.set(ctx, r.ref(g.ID), toGoalDoc(g))
}

func (r goalRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.get(ctx, r.ref(id)); err != nil {
		return mapNotFound(err, apierror.ErrGoalNotFound)
	}
	return r.s.delete(ctx, r.ref(id))
}
