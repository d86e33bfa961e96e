package docstore

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type productDoc struct {
	Name         string    `firestore:"name"`
	Category     string    `firestore:"category"`
	Description  string    `firestore:"description"`
	UnitPrice    float64   `firestore:"unitPrice"`
	CostPrice    float64   `firestore:"costPrice"`
	ProfitMargin float64   `firestore:"profitMargin"`
	ImageURL     string    `firestore:"imageUrl"`
	ThumbnailURL string    `firestore:"thumbnailUrl"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func toProductDoc(p *model.Product) productDoc {
	return productDoc{
		Name:         p.Name,
		Category:     p.Category,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice.InexactFloat64(),
		CostPrice:    p.CostPrice.InexactFloat64(),
		ProfitMargin: p.ProfitMargin.InexactFloat64(),
		ImageURL:     p.ImageURL,
		ThumbnailURL: p.ThumbnailURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func productFrom(snap *firestore.DocumentSnapshot) (model.Product, error) {
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Product{}, err
	}
	return model.Product{
		ID:           snap.Ref.ID,
		Name:         d.Name,
		Category:     d.Category,
		Description:  d.Description,
		UnitPrice:    decimal.NewFromFloat(d.UnitPrice),
		CostPrice:    decimal.NewFromFloat(d.CostPrice),
		ProfitMargin: decimal.NewFromFloat(d.ProfitMargin),
		ImageURL:     d.ImageURL,
		ThumbnailURL: d.ThumbnailURL,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type inventoryDoc struct {
	ProductID       string     `firestore:"productId"`
	CurrentStock    int        `firestore:"currentStock"`
	MinimumStock    int        `firestore:"minimumStock"`
	MaximumStock    int        `firestore:"maximumStock"`
	AverageCost     float64    `firestore:"averageCost"`
	Location        string     `firestore:"location,omitempty"`
	ExpirationDate  *time.Time `firestore:"expirationDate,omitempty"`
	LastStockUpdate time.Time  `firestore:"lastStockUpdate"`
	CreatedAt       time.Time  `firestore:"createdAt"`
	UpdatedAt       time.Time  `firestore:"updatedAt"`
}

func toInventoryDoc(inv *model.Inventory) inventoryDoc {
	return inventoryDoc{
		ProductID:       inv.ProductID,
		CurrentStock:    inv.CurrentStock,
		MinimumStock:    inv.MinimumStock,
		MaximumStock:    inv.MaximumStock,
		AverageCost:     inv.AverageCost.InexactFloat64(),
		Location:        inv.Location,
		ExpirationDate:  inv.ExpirationDate,
		LastStockUpdate: inv.LastStockUpdate,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func inventoryFrom(snap *firestore.DocumentSnapshot) (model.Inventory, error) {
	var d inventoryDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Inventory{}, err
	}
	return model.Inventory{
		ID:              snap.Ref.ID,
		ProductID:       d.ProductID,
		CurrentStock:    d.CurrentStock,
		MinimumStock:    d.MinimumStock,
		MaximumStock:    d.MaximumStock,
		AverageCost:     decimal.NewFromFloat(d.AverageCost),
		Location:        d.Location,
		ExpirationDate:  d.ExpirationDate,
		LastStockUpdate: d.LastStockUpdate,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type movementDoc struct {
	InventoryID  string    `firestore:"inventoryId"`
	MovementType string    `firestore:"movementType"`
	Quantity     int       `firestore:"quantity"`
	UnitPrice    *float64  `firestore:"unitPrice,omitempty"`
	Reference    string    `firestore:"reference,omitempty"`
	Reason       string    `firestore:"reason"`
	PerformedBy  string    `firestore:"performedBy"`
	PerformedAt  time.Time `firestore:"performedAt"`
	Notes        string    `firestore:"notes,omitempty"`
}

func toMovementDoc(m *model.StockMovement) movementDoc {
	d := movementDoc{
		InventoryID:  m.InventoryID,
		MovementType: string(m.MovementType),
		Quantity:     m.Quantity,
		Reference:    m.Reference,
		Reason:       m.Reason,
		PerformedBy:  m.PerformedBy,
		PerformedAt:  m.PerformedAt,
		Notes:        m.Notes,
	}
	if m.UnitPrice != nil {
		f := m.UnitPrice.InexactFloat64()
		d.UnitPrice = &f
	}
	return d
}

func movementFrom(snap *firestore.DocumentSnapshot) (model.StockMovement, error) {
	var d movementDoc
	if err := snap.DataTo(&d); err != nil {
		return model.StockMovement{}, err
	}
	m := model.StockMovement{
		ID:           snap.Ref.ID,
		InventoryID:  d.InventoryID,
		MovementType: model.MovementType(d.MovementType),
		Quantity:     d.Quantity,
		Reference:    d.Reference,
		Reason:       d.Reason,
		PerformedBy:  d.PerformedBy,
		PerformedAt:  d.PerformedAt,
		Notes:        d.Notes,
	}
	if d.UnitPrice != nil {
		p := decimal.NewFromFloat(*d.UnitPrice)
		m.UnitPrice = &p
	}
	return m, nil
}

type saleDoc struct {
	ProductID      string    `firestore:"productId"`
	Quantity       int       `firestore:"quantity"`
	UnitPrice      float64   `firestore:"unitPrice"`
	TotalAmount    float64   `firestore:"totalAmount"`
	Profit         float64   `firestore:"profit"`
	CustomerName   string    `firestore:"customerName,omitempty"`
	CustomerEmail  string    `firestore:"customerEmail,omitempty"`
	SaleDate       time.Time `firestore:"saleDate"`
	Status         string    `firestore:"status"`
	PaymentMethod  string    `firestore:"paymentMethod"`
	Notes          string    `firestore:"notes,omitempty"`
	IdempotencyKey string    `firestore:"idempotencyKey,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

func toSaleDoc(s *model.Sale) saleDoc {
	d := saleDoc{
		ProductID:     s.ProductID,
		Quantity:      s.Quantity,
		UnitPrice:     s.UnitPrice.InexactFloat64(),
		TotalAmount:   s.TotalAmount.InexactFloat64(),
		Profit:        s.Profit.InexactFloat64(),
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		SaleDate:      s.SaleDate,
		Status:        string(s.Status),
		PaymentMethod: string(s.PaymentMethod),
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.IdempotencyKey != nil {
		d.IdempotencyKey = *s.IdempotencyKey
	}
	return d
}

func saleFrom(snap *firestore.DocumentSnapshot) (model.Sale, error) {
	var d saleDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Sale{}, err
	}
	s := model.Sale{
		ID:            snap.Ref.ID,
		ProductID:     d.ProductID,
		Quantity:      d.Quantity,
		UnitPrice:     decimal.NewFromFloat(d.UnitPrice),
		TotalAmount:   decimal.NewFromFloat(d.TotalAmount),
		Profit:        decimal.NewFromFloat(d.Profit),
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		SaleDate:      d.SaleDate,
		Status:        model.SaleStatus(d.Status),
		PaymentMethod: model.PaymentMethod(d.PaymentMethod),
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.IdempotencyKey != "" {
		key := d.IdempotencyKey
		s.IdempotencyKey = &key
	}
	return s, nil
}

type goalDoc struct {
	Title        string    `firestore:"title"`
	Description  string    `firestore:"description,omitempty"`
	Type         string    `firestore:"type"`
	TargetValue  float64   `firestore:"targetValue"`
	CurrentValue float64   `firestore:"currentValue"`
	Unit         string    `firestore:"unit"`
	StartDate    time.Time `firestore:"startDate"`
	EndDate      time.Time `firestore:"endDate"`
	Status       string    `firestore:"status"`
	ProductID    string    `firestore:"productId,omitempty"`
	Category     string    `firestore:"category,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func toGoalDoc(g *model.Goal) goalDoc {
	return goalDoc{
		Title:        g.Title,
		Description:  g.Description,
		Type:         string(g.Type),
		TargetValue:  g.TargetValue.InexactFloat64(),
		CurrentValue: g.CurrentValue.InexactFloat64(),
		Unit:         g.Unit,
		StartDate:    g.StartDate,
		EndDate:      g.EndDate,
		Status:       string(g.Status),
		ProductID:    g.ProductID,
		Category:     g.Category,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func goalFrom(snap *firestore.DocumentSnapshot) (model.Goal, error) {
	var d goalDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Goal{}, err
	}
	return model.Goal{
		ID:           snap.Ref.ID,
		Title:        d.Title,
		Description:  d.Description,
		Type:         model.GoalType(d.Type),
		TargetValue:  decimal.NewFromFloat(d.TargetValue),
		CurrentValue: decimal.NewFromFloat(d.CurrentValue),
		Unit:         d.Unit,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		Status:       model.GoalStatus(d.Status),
		ProductID:    d.ProductID,
		Category:     d.Category,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// decode maps every snapshot through fn.
func decode[T any](snaps []*firestore.DocumentSnapshot, fn func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	out := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		v, err := fn(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
