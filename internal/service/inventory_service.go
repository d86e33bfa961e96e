package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

type InventoryService interface {
	AddStock(ctx context.Context, req dto.AddStockRequest) (*dto.StockResult, error)
	Adjust(ctx context.Context, inventoryID string, req dto.AdjustStockRequest) (*dto.StockResult, error)
	Remove(ctx context.Context, inventoryID string, req dto.RemoveStockRequest) (*dto.StockResult, error)
	List(ctx context.Context) ([]model.Inventory, error)
	LowStock(ctx context.Context) ([]model.Inventory, error)
	Movements(ctx context.Context, inventoryID string, limit int) ([]model.StockMovement, error)
}

type inventoryService struct {
	store      repository.Store
	locker     infra.KeyLocker
	events     infra.EventPublisher
	dispatcher JobDispatcher
	now        func() time.Time
}

func NewInventoryService(store repository.Store, locker infra.KeyLocker, events infra.EventPublisher, dispatcher JobDispatcher) InventoryService {
	if locker == nil {
		locker = infra.NewLocalLocker()
	}
	if events == nil {
		events = infra.NopPublisher{}
	}
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &inventoryService{store: store, locker: locker, events: events, dispatcher: dispatcher, now: time.Now}
}

// ── AddStock ─────────────────────────────────────────────────────────────────
// Under the product lock and one transaction:
//   1. Resolve the inventory (by id, else by product)
//   2. Missing: create it seeded with the quantity and default thresholds
//   3. Present: add the quantity and fold the lot into the average cost
//   4. Append the inbound movement

func (s *inventoryService) AddStock(ctx context.Context, req dto.AddStockRequest) (*dto.StockResult, error) {
	if req.Quantity <= 0 {
		return nil, apierror.Invalid("quantidade deve ser maior que zero")
	}
	ctx, span := otel.Tracer("service").Start(ctx, "inventory.AddStock")
	defer span.End()

	productID := req.ProductID
	if productID == "" {
		inv, err := s.store.Inventories().FindByID(ctx, req.InventoryID)
		if err != nil {
			return nil, err
		}
		productID = inv.ProductID
	}

	unlock, err := s.locker.Lock(ctx, productLockKey(productID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result dto.StockResult
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		result = dto.StockResult{}
		now := s.now()

		inv, err := s.resolveInventory(ctx, tx, req.InventoryID, productID)
		if err != nil && !errors.Is(err, apierror.ErrInventoryNotFound) {
			return err
		}
		if inv == nil {
			if req.InventoryID != "" {
				return apierror.ErrInventoryNotFound
			}
			if _, err := tx.Products().FindByID(ctx, productID); err != nil {
				return err
			}
		}

		var price *decimal.Decimal
		if req.UnitPrice != nil {
			p := *req.UnitPrice
			price = &p
		}

		if inv == nil {
			inv = newInventory(productID, req, now)
			if err := tx.Inventories().Create(ctx, inv); err != nil {
				return err
			}
			result.Created = true
		} else {
			if price != nil {
				inv.AverageCost = model.WeightedAverageCost(inv.CurrentStock, inv.AverageCost, req.Quantity, *price)
			}
			inv.CurrentStock = model.ApplyMovement(inv.CurrentStock, model.MovementIn, req.Quantity)
			inv.LastStockUpdate = now
			inv.UpdatedAt = now
			if err := tx.Inventories().UpdateStock(ctx, inv); err != nil {
				return err
			}
		}

		mov := &model.StockMovement{
			InventoryID:  inv.ID,
			MovementType: model.MovementIn,
			Quantity:     req.Quantity,
			UnitPrice:    price,
			Reference:    req.Reference,
			Reason:       req.Reason,
			PerformedBy:  performer(req.PerformedBy),
			PerformedAt:  now,
			Notes:        req.Notes,
		}
		if err := tx.Movements().Create(ctx, mov); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}

		result.Inventory = *inv
		result.Movement = *mov
		return nil
	})
	if err != nil {
		return nil, err
	}

	stockMovements.WithLabelValues(string(model.MovementIn)).Inc()
	s.events.Publish(ctx, infra.EventStockAdded, result)
	log.Info().
		Str("inventory_id", result.Inventory.ID).
		Str("product_id", productID).
		Int("quantity", req.Quantity).
		Int("stock", result.Inventory.CurrentStock).
		Bool("created", result.Created).
		Msg("stock added")
	return &result, nil
}

func (s *inventoryService) resolveInventory(ctx context.Context, tx repository.Store, inventoryID, productID string) (*model.Inventory, error) {
	if inventoryID != "" {
		inv, err := tx.Inventories().FindByID(ctx, inventoryID)
		if err != nil {
			return nil, err
		}
		if productID != "" && inv.ProductID != productID {
			return nil, apierror.Invalid("inventário %s não pertence ao produto %s", inventoryID, productID)
		}
		return inv, nil
	}
	return tx.Inventories().FindByProductID(ctx, productID)
}

func newInventory(productID string, req dto.AddStockRequest, now time.Time) *model.Inventory {
	inv := &model.Inventory{
		ProductID:       productID,
		CurrentStock:    req.Quantity,
		MinimumStock:    model.DefaultMinimumStock,
		MaximumStock:    model.DefaultMaximumStock,
		Location:        req.Location,
		ExpirationDate:  req.ExpirationDate,
		LastStockUpdate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.UnitPrice != nil {
		inv.AverageCost = *req.UnitPrice
	}
	if req.MinimumStock != nil {
		inv.MinimumStock = *req.MinimumStock
	}
	if req.MaximumStock != nil {
		inv.MaximumStock = *req.MaximumStock
	}
	return inv
}

// ── Adjust / Remove ──────────────────────────────────────────────────────────

func (s *inventoryService) Adjust(ctx context.Context, inventoryID string, req dto.AdjustStockRequest) (*dto.StockResult, error) {
	if req.NewQuantity < 0 {
		return nil, apierror.Invalid("quantidade não pode ser negativa")
	}
	return s.move(ctx, inventoryID, model.MovementAdjustment, req.NewQuantity, "", req.Reason, req.Notes, req.PerformedBy)
}

func (s *inventoryService) Remove(ctx context.Context, inventoryID string, req dto.RemoveStockRequest) (*dto.StockResult, error) {
	if req.Quantity <= 0 {
		return nil, apierror.Invalid("quantidade deve ser maior que zero")
	}
	return s.move(ctx, inventoryID, model.MovementOut, req.Quantity, req.Reference, req.Reason, req.Notes, req.PerformedBy)
}

func (s *inventoryService) move(ctx context.Context, inventoryID string, kind model.MovementType, qty int, reference, reason, notes, by string) (*dto.StockResult, error) {
	current, err := s.store.Inventories().FindByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, productLockKey(current.ProductID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result dto.StockResult
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := s.now()
		inv, err := tx.Inventories().FindByID(ctx, inventoryID)
		if err != nil {
			return err
		}
		inv.CurrentStock = model.ApplyMovement(inv.CurrentStock, kind, qty)
		inv.LastStockUpdate = now
		inv.UpdatedAt = now
		if err := tx.Inventories().UpdateStock(ctx, inv); err != nil {
			return err
		}
		mov := &model.StockMovement{
			InventoryID:  inv.ID,
			MovementType: kind,
			Quantity:     qty,
			Reference:    reference,
			Reason:       reason,
			PerformedBy:  performer(by),
			PerformedAt:  now,
			Notes:        notes,
		}
		if err := tx.Movements().Create(ctx, mov); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		result = dto.StockResult{Inventory: *inv, Movement: *mov}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stockMovements.WithLabelValues(string(kind)).Inc()
	if result.Inventory.IsLowStock() {
		s.alertLowStock(ctx, result.Inventory, "")
	}
	return &result, nil
}

func (s *inventoryService) alertLowStock(ctx context.Context, inv model.Inventory, productName string) {
	if productName == "" {
		if p, err := s.store.Products().FindByID(ctx, inv.ProductID); err == nil {
			productName = p.Name
		}
	}
	enqueueLowStock(ctx, s.dispatcher, inv, productName)
}

func enqueueLowStock(ctx context.Context, d JobDispatcher, inv model.Inventory, productName string) {
	job := dto.LowStockJob{
		InventoryID:  inv.ID,
		ProductID:    inv.ProductID,
		ProductName:  productName,
		CurrentStock: inv.CurrentStock,
		MinimumStock: inv.MinimumStock,
	}
	if err := d.EnqueueLowStockAlert(ctx, job); err != nil {
		log.Warn().Err(err).Str("inventory_id", inv.ID).Msg("low stock alert enqueue failed")
	}
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *inventoryService) List(ctx context.Context) ([]model.Inventory, error) {
	return s.store.Inventories().List(ctx)
}

func (s *inventoryService) LowStock(ctx context.Context) ([]model.Inventory, error) {
	return s.store.Inventories().ListLowStock(ctx)
}

func (s *inventoryService) Movements(ctx context.Context, inventoryID string, limit int) ([]model.StockMovement, error) {
	if _, err := s.store.Inventories().FindByID(ctx, inventoryID); err != nil {
		return nil, err
	}
	return s.store.Movements().ListByInventory(ctx, inventoryID, limit)
}
