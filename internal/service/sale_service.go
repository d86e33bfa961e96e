package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

type SaleService interface {
	CreateSale(ctx context.Context, req dto.CreateSaleRequest) (*model.Sale, error)
	Get(ctx context.Context, id string) (*model.Sale, error)
	ListByRange(ctx context.Context, from, to time.Time) (*dto.SaleListResponse, error)
	UpdateStatus(ctx context.Context, id string, status model.SaleStatus) (*model.Sale, error)
	ExportXLSX(ctx context.Context, month, year int, w io.Writer) error
	RangeDashboard(ctx context.Context, from, to time.Time, limit int) (*dto.SalesRangeDashboard, error)
}

type saleService struct {
	store      repository.Store
	locker     infra.KeyLocker
	events     infra.EventPublisher
	dispatcher JobDispatcher
	now        func() time.Time
}

func NewSaleService(store repository.Store, locker infra.KeyLocker, events infra.EventPublisher, dispatcher JobDispatcher) SaleService {
	if locker == nil {
		locker = infra.NewLocalLocker()
	}
	if events == nil {
		events = infra.NopPublisher{}
	}
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &saleService{store: store, locker: locker, events: events, dispatcher: dispatcher, now: time.Now}
}

// ── CreateSale ───────────────────────────────────────────────────────────────
// Under the product lock and one transaction:
//   1. Read the product (ProductNotFound) and its inventory (InventoryNotFound)
//   2. Reject when stock cannot cover the quantity (InsufficientStock)
//   3. Decrement stock, write the sale, append the outbound movement
// Nothing is written when any step fails. A repeated idempotency key returns
// the sale recorded the first time.

func (s *saleService) CreateSale(ctx context.Context, req dto.CreateSaleRequest) (*model.Sale, error) {
	if req.Quantity <= 0 {
		return nil, apierror.Invalid("quantidade deve ser maior que zero")
	}
	status := req.Status
	if status == "" {
		status = model.SaleCompleted
	}
	if !status.Valid() {
		return nil, apierror.Invalid("status inválido: %s", status)
	}

	ctx, span := otel.Tracer("service").Start(ctx, "sale.CreateSale")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", req.ProductID), attribute.Int("quantity", req.Quantity))

	unlock, err := s.locker.Lock(ctx, productLockKey(req.ProductID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.IdempotencyKey != "" {
		existing, err := s.store.Sales().FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			log.Info().Str("sale_id", existing.ID).Str("idempotency_key", req.IdempotencyKey).Msg("sale replayed")
			return existing, nil
		}
		if !errors.Is(err, apierror.ErrSaleNotFound) {
			return nil, err
		}
	}

	var (
		sale     model.Sale
		product  model.Product
		newStock int
		inv      model.Inventory
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := s.now()

		p, err := tx.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		current, err := tx.Inventories().FindByProductID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if current.CurrentStock < req.Quantity {
			return apierror.InsufficientStock(current.CurrentStock, req.Quantity)
		}

		unitPrice := p.UnitPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		total, profit := model.SaleTotals(req.Quantity, unitPrice, p.CostPrice)

		saleDate := now
		if req.SaleDate != nil {
			saleDate = *req.SaleDate
		}
		sale = model.Sale{
			ID:            repository.NewID(),
			ProductID:     p.ID,
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			TotalAmount:   total,
			Profit:        profit,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			SaleDate:      saleDate,
			Status:        status,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			sale.IdempotencyKey = &key
		}

		newStock, err = tx.Inventories().DecrementStock(ctx, current.ID, req.Quantity, now)
		if err != nil {
			return err
		}
		if err := tx.Sales().Create(ctx, &sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		mov := &model.StockMovement{
			InventoryID:  current.ID,
			MovementType: model.MovementOut,
			Quantity:     req.Quantity,
			UnitPrice:    &unitPrice,
			Reference:    sale.ID,
			Reason:       SaleMovementReason,
			PerformedBy:  performer(req.PerformedBy),
			PerformedAt:  now,
		}
		if err := tx.Movements().Create(ctx, mov); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}

		product = *p
		inv = *current
		inv.CurrentStock = newStock
		return nil
	})
	if err != nil {
		var stockErr *apierror.InsufficientStockError
		if errors.As(err, &stockErr) {
			insufficientStock.Inc()
		}
		return nil, err
	}

	salesCreated.WithLabelValues(string(sale.PaymentMethod)).Inc()
	stockMovements.WithLabelValues(string(model.MovementOut)).Inc()
	log.Info().
		Str("sale_id", sale.ID).
		Str("product_id", sale.ProductID).
		Int("quantity", sale.Quantity).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Int("stock_after", newStock).
		Msg("sale created")

	s.afterSale(ctx, &sale, &product, inv)
	return &sale, nil
}

// afterSale runs the post-commit side effects; none of them can fail the sale.
func (s *saleService) afterSale(ctx context.Context, sale *model.Sale, product *model.Product, inv model.Inventory) {
	s.events.Publish(ctx, infra.EventSaleCreated, sale)

	if sale.Status == model.SaleCompleted {
		job := dto.GoalProgressJob{
			SaleID:    sale.ID,
			ProductID: sale.ProductID,
			Category:  product.Category,
			Quantity:  sale.Quantity,
			Revenue:   sale.TotalAmount,
			SaleDate:  sale.SaleDate,
		}
		if err := s.dispatcher.EnqueueGoalProgress(ctx, job); err != nil {
			log.Warn().Err(err).Str("sale_id", sale.ID).Msg("goal progress enqueue failed")
		}
	}
	if inv.IsLowStock() {
		enqueueLowStock(ctx, s.dispatcher, inv, product.Name)
	}
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *saleService) Get(ctx context.Context, id string) (*model.Sale, error) {
	return s.store.Sales().FindByID(ctx, id)
}

func (s *saleService) ListByRange(ctx context.Context, from, to time.Time) (*dto.SaleListResponse, error) {
	if to.Before(from) {
		return nil, apierror.Invalid("intervalo de datas inválido")
	}
	sales, err := s.store.Sales().FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	revenue, profit := completedTotals(sales)
	return &dto.SaleListResponse{Data: sales, Total: len(sales), TotalRevenue: revenue, TotalProfit: profit}, nil
}

func (s *saleService) UpdateStatus(ctx context.Context, id string, status model.SaleStatus) (*model.Sale, error) {
	if !status.Valid() {
		return nil, apierror.Invalid("status inválido: %s", status)
	}
	if err := s.store.Sales().UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.Sales().FindByID(ctx, id)
}

func (s *saleService) ExportXLSX(ctx context.Context, month, year int, w io.Writer) error {
	from, to := model.MonthRange(month, year)
	sales, err := s.store.Sales().FindByDateRange(ctx, from, to)
	if err != nil {
		return err
	}
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return infra.WriteSalesXLSX(w, sales, names)
}

// RangeDashboard summarizes completed sales in [from, to) next to the most
// profitable products of the catalog. To reports the last day inside the range.
func (s *saleService) RangeDashboard(ctx context.Context, from, to time.Time, limit int) (*dto.SalesRangeDashboard, error) {
	if to.Before(from) {
		return nil, apierror.Invalid("intervalo de datas inválido")
	}
	if limit <= 0 {
		limit = 5
	}
	sales, err := s.store.Sales().FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	top, err := s.store.Products().TopByProfitMargin(ctx, limit)
	if err != nil {
		return nil, err
	}
	revenue, profit := completedTotals(sales)
	margin := decimal.Zero
	if revenue.IsPositive() {
		margin = profit.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &dto.SalesRangeDashboard{
		From:                  from.Format("2006-01-02"),
		To:                    to.Add(-time.Nanosecond).Format("2006-01-02"),
		TopProfitableProducts: top,
		TotalRevenue:          revenue,
		TotalProfit:           profit,
		ProfitMargin:          margin,
		SalesCount:            len(sales),
	}, nil
}

func completedTotals(sales []model.Sale) (revenue, profit decimal.Decimal) {
	revenue, profit = decimal.Zero, decimal.Zero
	for _, s := range sales {
		if s.Status != model.SaleCompleted {
			continue
		}
		revenue = revenue.Add(s.TotalAmount)
		profit = profit.Add(s.Profit)
	}
	return revenue, profit
}
