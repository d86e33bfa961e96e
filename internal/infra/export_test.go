package infra

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

func TestThumbnail_ResizesTo200Wide(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		src.Set(x, 200, color.RGBA{R: 30, G: 160, B: 60, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := Thumbnail(&buf)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	_, err := Thumbnail(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)
}

func TestWriteSalesXLSX(t *testing.T) {
	sales := []model.Sale{
		{
			ID: "s1", ProductID: "p1", Quantity: 3,
			UnitPrice: decimal.RequireFromString("4.50"), TotalAmount: decimal.RequireFromString("13.50"), Profit: decimal.RequireFromString("8.10"),
			Status: model.SaleCompleted, PaymentMethod: model.PaymentPix, CustomerName: "Maria",
			SaleDate: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
		},
		{ID: "s2", ProductID: "ghost", Quantity: 1, Status: model.SalePending, SaleDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSalesXLSX(&buf, sales, map[string]string{"p1": "Alface"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Produto", rows[0][2])
	assert.Equal(t, "Alface", rows[1][2])
	assert.Equal(t, "2024-05-02 09:30", rows[1][1])
	assert.Equal(t, "13.5", rows[1][5])
	assert.Equal(t, "ghost", rows[2][2], "unknown products fall back to the id")
}

func sampleSnapshot() *dashboard.Snapshot {
	return &dashboard.Snapshot{
		Month: 5, Year: 2024,
		TotalProducts:  4,
		InventoryValue: decimal.RequireFromString("1250.40"),
		LowStockCount:  1,
		TotalSales:     12,
		MonthlyRevenue: decimal.RequireFromString("980"),
		MonthlyProfit:  decimal.RequireFromString("410"),
		ProfitMargin:   decimal.RequireFromString("41.84"),
		TopProducts:    []dashboard.TopProduct{{ProductID: "p1", ProductName: "Morango", Quantity: 30, Revenue: decimal.RequireFromString("477")}},
		RecentSales:    []model.Sale{{ID: "s1", ProductID: "p1", Quantity: 2, TotalAmount: decimal.RequireFromString("31.80"), SaleDate: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)}},
		FailedSources:  []dashboard.Source{dashboard.SourceInventories},
		Partial:        true,
		GeneratedAt:    time.Date(2024, 5, 31, 18, 0, 0, 0, time.UTC),
	}
}

func TestRenderDashboardPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDashboardPDF(&buf, sampleSnapshot()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteDashboardPDF(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDashboardPDF(sampleSnapshot(), filepath.Join(dir, "reports"))
	require.NoError(t, err)
	assert.Equal(t, "dashboard_2024-05.pdf", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
