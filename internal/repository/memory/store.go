// Package memory is a process-local Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// table keeps rows in insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() table[T] { return table[T]{rows: make(map[string]T)} }

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// saved is a row's value before a transaction first wrote it.
type saved[T any] struct {
	v       T
	existed bool
}

// undoTable records the pre-transaction value of every row a transaction touched.
type undoTable[T any] map[string]saved[T]

func (u undoTable[T]) save(t *table[T], id string) {
	if _, done := u[id]; done {
		return
	}
	v, ok := t.rows[id]
	u[id] = saved[T]{v: v, existed: ok}
}

func (u undoTable[T]) restore(t *table[T]) {
	for id, sv := range u {
		if sv.existed {
			t.put(id, sv.v)
		} else {
			t.remove(id)
		}
	}
}

type state struct {
	products    table[model.Product]
	inventories table[model.Inventory]
	movements   table[model.StockMovement]
	sales       table[model.Sale]
	goals       table[model.Goal]
}

// undoLog is owned by one RunInTx call. Rows written outside the
// transaction are never in it, so a rollback leaves them alone.
type undoLog struct {
	products    undoTable[model.Product]
	inventories undoTable[model.Inventory]
	movements   undoTable[model.StockMovement]
	sales       undoTable[model.Sale]
	goals       undoTable[model.Goal]
}

func newUndoLog() *undoLog {
	return &undoLog{
		products:    undoTable[model.Product]{},
		inventories: undoTable[model.Inventory]{},
		movements:   undoTable[model.StockMovement]{},
		sales:       undoTable[model.Sale]{},
		goals:       undoTable[model.Goal]{},
	}
}

func (l *undoLog) rollback(st *state) {
	l.products.restore(&st.products)
	l.inventories.restore(&st.inventories)
	l.movements.restore(&st.movements)
	l.sales.restore(&st.sales)
	l.goals.restore(&st.goals)
}

// Store implements repository.Store over maps guarded by a mutex.
// RunInTx serializes transactions and, when fn fails, restores only the rows
// fn wrote.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   state
}

func NewStore() *Store {
	return &Store{st: state{
		products:    newTable[model.Product](),
		inventories: newTable[model.Inventory](),
		movements:   newTable[model.StockMovement](),
		sales:       newTable[model.Sale](),
		goals:       newTable[model.Goal](),
	}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Products() repository.ProductRepository        { return productRepo{s: s} }
func (s *Store) Inventories() repository.InventoryRepository   { return inventoryRepo{s: s} }
func (s *Store) Movements() repository.StockMovementRepository { return movementRepo{s: s} }
func (s *Store) Sales() repository.SaleRepository              { return saleRepo{s: s} }
func (s *Store) Goals() repository.GoalRepository              { return goalRepo{s: s} }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txStore{s: s, log: newUndoLog()}
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		tx.log.rollback(&s.st)
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the Store handed to a RunInTx callback. Its repositories write
// through to the shared state and record what they overwrite.
type txStore struct {
	s   *Store
	log *undoLog
}

func (t *txStore) Products() repository.ProductRepository { return productRepo{s: t.s, log: t.log} }
func (t *txStore) Inventories() repository.InventoryRepository {
	return inventoryRepo{s: t.s, log: t.log}
}
func (t *txStore) Movements() repository.StockMovementRepository {
	return movementRepo{s: t.s, log: t.log}
}
func (t *txStore) Sales() repository.SaleRepository { return saleRepo{s: t.s, log: t.log} }
func (t *txStore) Goals() repository.GoalRepository { return goalRepo{s: t.s, log: t.log} }

func (t *txStore) Ping(ctx context.Context) error { return t.s.Ping(ctx) }

// RunInTx joins the enclosing transaction.
func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return fn(ctx, t)
}

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

type productRepo struct {
	s   *Store
	log *undoLog
}

// saveUndo must be called with mu held, before the row changes.
func (r productRepo) saveUndo(id string) {
	if r.log != nil {
		r.log.products.save(&r.s.st.products, id)
	}
}

func (r productRepo) Create(_ context.Context, p *model.Product) error {
	repository.EnsureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(p.ID)
	r.s.st.products.put(p.ID, *p)
	return nil
}

func (r productRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.st.products.rows[id]
	if !ok {
		return nil, apierror.ErrProductNotFound
	}
	return &p, nil
}

func (r productRepo) List(context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.products.all(), nil
}

func (r productRepo) TopByProfitMargin(_ context.Context, n int) ([]model.Product, error) {
	r.s.mu.RLock()
	list := r.s.st.products.all()
	r.s.mu.RUnlock()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ProfitMargin.GreaterThan(list[j].ProfitMargin)
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list, nil
}

func (r productRepo) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.products.rows[p.ID]
	if !ok {
		return apierror.ErrProductNotFound
	}
	p.CreatedAt = cur.CreatedAt
	r.saveUndo(p.ID)
	r.s.st.products.put(p.ID, *p)
	return nil
}

func (r productRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(id)
	if !r.s.st.products.remove(id) {
		return apierror.ErrProductNotFound
	}
	return nil
}

// ── Inventories ──────────────────────────────────────────────────────────────

type inventoryRepo struct {
	s   *Store
	log *undoLog
}

func (r inventoryRepo) saveUndo(id string) {
	if r.log != nil {
		r.log.inventories.save(&r.s.st.inventories, id)
	}
}

func (r inventoryRepo) Create(_ context.Context, inv *model.Inventory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.inventories.rows {
		if existing.ProductID == inv.ProductID {
			return apierror.ErrDuplicateInventory
		}
	}
	repository.EnsureID(&inv.ID)
	stamp(&inv.CreatedAt, &inv.UpdatedAt)
	row := *inv
	row.Product = nil
	r.saveUndo(inv.ID)
	r.s.st.inventories.put(inv.ID, row)
	return nil
}

func (r inventoryRepo) FindByID(_ context.Context, id string) (*model.Inventory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.st.inventories.rows[id]
	if !ok {
		return nil, apierror.ErrInventoryNotFound
	}
	return &inv, nil
}

func (r inventoryRepo) FindByProductID(_ context.Context, productID string) (*model.Inventory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.st.inventories.all() {
		if inv.ProductID == productID {
			return &inv, nil
		}
	}
	return nil, apierror.ErrInventoryNotFound
}

func (r inventoryRepo) List(context.Context) ([]model.Inventory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.inventories.all(), nil
}

func (r inventoryRepo) ListLowStock(context.Context) ([]model.Inventory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Inventory
	for _, inv := range r.s.st.inventories.all() {
		if inv.IsLowStock() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r inventoryRepo) UpdateStock(_ context.Context, inv *model.Inventory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.inventories.rows[inv.ID]
	if !ok {
		return apierror.ErrInventoryNotFound
	}
	cur.CurrentStock = inv.CurrentStock
	cur.AverageCost = inv.AverageCost
	cur.LastStockUpdate = inv.LastStockUpdate
	cur.UpdatedAt = inv.UpdatedAt
	r.saveUndo(cur.ID)
	r.s.st.inventories.put(cur.ID, cur)
	return nil
}

func (r inventoryRepo) DecrementStock(_ context.Context, id string, qty int, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.inventories.rows[id]
	if !ok {
		return 0, apierror.ErrInventoryNotFound
	}
	if cur.CurrentStock < qty {
		return cur.CurrentStock, apierror.InsufficientStock(cur.CurrentStock, qty)
	}
	cur.CurrentStock -= qty
	cur.LastStockUpdate = at
	cur.UpdatedAt = at
	r.saveUndo(cur.ID)
	r.s.st.inventories.put(cur.ID, cur)
	return cur.CurrentStock, nil
}

// ── Stock movements ──────────────────────────────────────────────────────────

type movementRepo struct {
	s   *Store
	log *undoLog
}

func (r movementRepo) saveUndo(id string) {
	if r.log != nil {
		r.log.movements.save(&r.s.st.movements, id)
	}
}

func (r movementRepo) Create(_ context.Context, m *model.StockMovement) error {
	repository.EnsureID(&m.ID)
	if m.PerformedAt.IsZero() {
		m.PerformedAt = time.Now()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(m.ID)
	r.s.st.movements.put(m.ID, *m)
	return nil
}

func (r movementRepo) ListByInventory(_ context.Context, inventoryID string, limit int) ([]model.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.StockMovement
	for _, m := range r.s.st.movements.all() {
		if m.InventoryID == inventoryID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

type saleRepo struct {
	s   *Store
	log *undoLog
}

func (r saleRepo) saveUndo(id string) {
	if r.log != nil {
		r.log.sales.save(&r.s.st.sales, id)
	}
}

func (r saleRepo) Create(_ context.Context, sale *model.Sale) error {
	repository.EnsureID(&sale.ID)
	stamp(&sale.CreatedAt, &sale.UpdatedAt)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(sale.ID)
	r.s.st.sales.put(sale.ID, *sale)
	return nil
}

func (r saleRepo) FindByID(_ context.Context, id string) (*model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.st.sales.rows[id]
	if !ok {
		return nil, apierror.ErrSaleNotFound
	}
	return &sale, nil
}

func (r saleRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sale := range r.s.st.sales.rows {
		if sale.IdempotencyKey != nil && *sale.IdempotencyKey == key {
			return &sale, nil
		}
	}
	return nil, apierror.ErrSaleNotFound
}

func (r saleRepo) FindByDateRange(_ context.Context, from, to time.Time) ([]model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Sale
	for _, sale := range r.s.st.sales.all() {
		if !sale.SaleDate.Before(from) && sale.SaleDate.Before(to) {
			out = append(out, sale)
		}
	}
	sortSalesDesc(out)
	return out, nil
}

func (r saleRepo) Recent(_ context.Context, n int) ([]model.Sale, error) {
	r.s.mu.RLock()
	out := r.s.st.sales.all()
	r.s.mu.RUnlock()
	sortSalesDesc(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// MonthlyRevenue reports ok=false: the memory backend has no pre-aggregation,
// so callers sum client-side.
func (r saleRepo) MonthlyRevenue(context.Context, int, int) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (r saleRepo) UpdateStatus(_ context.Context, id string, status model.SaleStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.st.sales.rows[id]
	if !ok {
		return apierror.ErrSaleNotFound
	}
	sale.Status = status
	sale.UpdatedAt = time.Now()
	r.saveUndo(id)
	r.s.st.sales.put(id, sale)
	return nil
}

func sortSalesDesc(list []model.Sale) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].SaleDate.After(list[j].SaleDate) })
}

// ── Goals ────────────────────────────────────────────────────────────────────

type goalRepo struct {
	s   *Store
	log *undoLog
}

func (r goalRepo) saveUndo(id string) {
	if r.log != nil {
		r.log.goals.save(&r.s.st.goals, id)
	}
}

func (r goalRepo) Create(_ context.Context, g *model.Goal) error {
	repository.EnsureID(&g.ID)
	stamp(&g.CreatedAt, &g.UpdatedAt)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(g.ID)
	r.s.st.goals.put(g.ID, *g)
	return nil
}

func (r goalRepo) FindByID(_ context.Context, id string) (*model.Goal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.st.goals.rows[id]
	if !ok {
		return nil, apierror.ErrGoalNotFound
	}
	return &g, nil
}

func (r goalRepo) List(context.Context) ([]model.Goal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.goals.all(), nil
}

func (r goalRepo) ListActive(_ context.Context, at time.Time) ([]model.Goal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Goal
	for _, g := range r.s.st.goals.all() {
		if g.Status == model.GoalActive && g.Covers(at) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r goalRepo) Update(_ context.Context, g *model.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.goals.rows[g.ID]
	if !ok {
		return apierror.ErrGoalNotFound
	}
	g.CreatedAt = cur.CreatedAt
	r.saveUndo(g.ID)
	r.s.st.goals.put(g.ID, *g)
	return nil
}

func (r goalRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.saveUndo(id)
	if !r.s.st.goals.remove(id) {
		return apierror.ErrGoalNotFound
	}
	return nil
}
