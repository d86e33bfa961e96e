package infra

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

const salesSheet = "Vendas"

var salesHeader = []any{"ID", "Data", "Produto", "Quantidade", "Preço unitário", "Total", "Lucro", "Status", "Pagamento", "Cliente"}

// WriteSalesXLSX writes one row per sale. productNames maps product id to
// display name; unknown ids are written as-is.
func WriteSalesXLSX(w io.Writer, sales []model.Sale, productNames map[string]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(salesSheet, "A1", &salesHeader); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}

	for i, s := range sales {
		name, ok := productNames[s.ProductID]
		if !ok {
			name = s.ProductID
		}
		row := []any{
			s.ID,
			s.SaleDate.Format("2006-01-02 15:04"),
			name,
			s.Quantity,
			s.UnitPrice.InexactFloat64(),
			s.TotalAmount.InexactFloat64(),
			s.Profit.InexactFloat64(),
			string(s.Status),
			string(s.PaymentMethod),
			s.CustomerName,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(salesSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(salesSheet, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(salesSheet, "B", "J", 16); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
