package infra

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
)

// WriteDashboardPDF renders snap into dir/dashboard_{year}-{month}.pdf and
// returns the file path.
func WriteDashboardPDF(snap *dashboard.Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("dashboard_%d-%02d.pdf", snap.Year, snap.Month))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := RenderDashboardPDF(f, snap); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return path, nil
}

// RenderDashboardPDF writes a one-page A4 summary of snap to w.
func RenderDashboardPDF(w io.Writer, snap *dashboard.Snapshot) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "FIAP Farms", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr(fmt.Sprintf("Relatório do painel %02d/%d", snap.Month, snap.Year)), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Gerado em "+snap.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "C", false, 0, "")
	if snap.Partial {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Dados parciais: fontes indisponíveis %v", snap.FailedSources)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// ── Summary ──────────────────────────────────────────────────────────────
	label := contentW * 0.6
	value := contentW * 0.4
	rows := [][2]string{
		{"Produtos cadastrados", fmt.Sprintf("%d", snap.TotalProducts)},
		{"Valor do estoque", "R$ " + snap.InventoryValue.StringFixed(2)},
		{"Itens com estoque baixo", fmt.Sprintf("%d", snap.LowStockCount)},
		{"Vendas no mês", fmt.Sprintf("%d", snap.TotalSales)},
		{"Receita do mês", "R$ " + snap.MonthlyRevenue.StringFixed(2)},
		{"Lucro do mês", "R$ " + snap.MonthlyProfit.StringFixed(2)},
		{"Margem de lucro", snap.ProfitMargin.StringFixed(2) + "%"},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		pdf.CellFormat(label, 7, tr(r[0]), "B", 0, "L", false, 0, "")
		pdf.CellFormat(value, 7, r[1], "B", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// ── Top products ─────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Produtos mais vendidos", "", 1, "L", false, 0, "")
	col1, col2, col3 := contentW*0.55, contentW*0.15, contentW*0.30
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Produto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Receita", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, tp := range snap.TopProducts {
		name := tp.ProductName
		if name == "" {
			name = tp.ProductID
		}
		pdf.CellFormat(col1, 6, tr(truncate(name, 48)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", tp.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "R$ "+tp.Revenue.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// ── Low stock ────────────────────────────────────────────────────────────
	if len(snap.LowStockItems) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentW, 7, "Estoque baixo", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, item := range snap.LowStockItems {
			name := item.Inventory.ProductID
			if item.Product != nil {
				name = item.Product.Name
			}
			line := fmt.Sprintf("%s: %d (mínimo %d)", truncate(name, 60), item.Inventory.CurrentStock, item.Inventory.MinimumStock)
			pdf.CellFormat(contentW, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
