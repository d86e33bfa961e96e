package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
	"github.com/sofiabaracatlj/fiap-farms/internal/middleware"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository/memory"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Helpers ──────────────────────────────────────────────────────────────────

// flakySources fails the listed sources and reads the rest from a store.
type flakySources struct {
	dashboard.Sources
	fail map[dashboard.Source]bool
}

var errSourceDown = errors.New("source down")

func (f flakySources) Products(ctx context.Context) ([]model.Product, error) {
	if f.fail[dashboard.SourceProducts] {
		return nil, errSourceDown
	}
	return f.Sources.Products(ctx)
}

func (f flakySources) Inventories(ctx context.Context) ([]model.Inventory, error) {
	if f.fail[dashboard.SourceInventories] {
		return nil, errSourceDown
	}
	return f.Sources.Inventories(ctx)
}

func (f flakySources) LowStock(ctx context.Context) ([]model.Inventory, error) {
	if f.fail[dashboard.SourceLowStock] {
		return nil, errSourceDown
	}
	return f.Sources.LowStock(ctx)
}

func (f flakySources) SalesBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	if f.fail[dashboard.SourceMonthSales] {
		return nil, errSourceDown
	}
	return f.Sources.SalesBetween(ctx, from, to)
}

func (f flakySources) MonthlyRevenue(ctx context.Context, month, year int) (decimal.Decimal, bool, error) {
	if f.fail[dashboard.SourceMonthlyRevenue] {
		return decimal.Zero, false, errSourceDown
	}
	return f.Sources.MonthlyRevenue(ctx, month, year)
}

type testAPI struct {
	engine *gin.Engine
	store  *memory.Store
}

func newTestAPI(t *testing.T, failing ...dashboard.Source) *testAPI {
	t.Helper()
	store := memory.NewStore()
	locker := infra.NewLocalLocker()

	fail := make(map[dashboard.Source]bool)
	for _, s := range failing {
		fail[s] = true
	}
	agg := dashboard.NewAggregator(flakySources{Sources: dashboard.StoreSources(store), fail: fail})

	products := NewProductsHandler(service.NewProductService(store, nil, nil))
	inventory := NewInventoryHandler(service.NewInventoryService(store, locker, nil, nil))
	sales := NewSalesHandler(service.NewSaleService(store, locker, nil, nil))
	goals := NewGoalsHandler(service.NewGoalService(store.Goals()))
	dash := NewDashboardHandler(agg, nil, nil, service.NewReportService(agg, nil, t.TempDir()))
	led := NewLedgerHandler(ledger.NewStore("0001", "FIAP Farms", decimal.Zero))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/health", Health(store, "memory", nil))
	v1 := r.Group("/v1")
	v1.POST("/products", products.Create)
	v1.GET("/products/:id", products.Get)
	v1.POST("/products/:id/image", products.UploadImage)
	v1.POST("/inventory/stock", inventory.AddStock)
	v1.GET("/inventory/low-stock", inventory.LowStock)
	v1.POST("/sales", sales.Create)
	v1.GET("/sales", sales.List)
	v1.GET("/sales/export.xlsx", sales.Export)
	v1.POST("/goals", goals.Create)
	v1.GET("/goals/summary", goals.Summary)
	v1.GET("/dashboard", dash.Get)
	v1.GET("/dashboard/live", dash.Live)
	v1.POST("/dashboard/refresh", dash.Refresh)
	v1.GET("/dashboard/report.pdf", dash.ReportPDF)
	v1.GET("/ledger", led.Get)
	v1.POST("/ledger/transactions", led.CreateTransaction)

	return &testAPI{engine: r, store: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seedProduct creates a product and stocks it through the API.
func (a *testAPI) seedProduct(t *testing.T, stock int) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/v1/products", map[string]any{
		"name": "Alface Crespa", "category": "Hortaliças", "unitPrice": "4.50", "costPrice": "1.80",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[model.Product](t, w)

	w = a.do(t, http.MethodPost, "/v1/inventory/stock", map[string]any{
		"productId": p.ID, "quantity": stock, "unitPrice": "1.80", "reason": "Colheita",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return p.ID
}

// ── Products / inventory ─────────────────────────────────────────────────────

func TestCreateProduct_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/products", map[string]any{"category": "Frutas", "unitPrice": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[apierror.ValidationError](t, w)
	assert.Equal(t, "required", body.Fields["Name"])
	assert.Equal(t, "gte", body.Fields["UnitPrice"])

	w = api.do(t, http.MethodPost, "/v1/products", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/v1/products/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"produto não encontrado"}`, w.Body.String())
}

func TestAddStock_SecondCallUpdates(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 5)

	w := api.do(t, http.MethodPost, "/v1/inventory/stock", map[string]any{"productId": id, "quantity": 3, "reason": "Compra"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 8, decode[struct {
		Inventory model.Inventory `json:"inventory"`
	}](t, w).Inventory.CurrentStock)

	w = api.do(t, http.MethodGet, "/v1/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Total int `json:"total"`
	}](t, w).Total)
}

func TestUploadImage_NotConfigured(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "alface.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not really a png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/products/"+id+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	// missing field
	req = httptest.NewRequest(http.MethodPost, "/v1/products/"+id+"/image", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── Sales ────────────────────────────────────────────────────────────────────

func TestCreateSale_InsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 2)

	w := api.do(t, http.MethodPost, "/v1/sales", map[string]any{"productId": id, "quantity": 5, "paymentMethod": "pix"})
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode[apierror.StockError](t, w)
	assert.Equal(t, 2, body.Available)
	assert.Equal(t, 5, body.Requested)
}

func TestCreateSale_IdempotencyHeader(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 10)
	req := map[string]any{"productId": id, "quantity": 2, "paymentMethod": "cash"}

	first := api.do(t, http.MethodPost, "/v1/sales", req, "Idempotency-Key", "pos-7-0001")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := api.do(t, http.MethodPost, "/v1/sales", req, "Idempotency-Key", "pos-7-0001")
	require.Equal(t, http.StatusCreated, second.Code)

	a, b := decode[model.Sale](t, first), decode[model.Sale](t, second)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.TotalAmount.Equal(decimal.RequireFromString("9")))

	w := api.do(t, http.MethodGet, "/v1/sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Total int `json:"total"`
	}](t, w)
	assert.Equal(t, 1, list.Total)
}

func TestCreateSale_BadPaymentMethod(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/v1/sales", map[string]any{"productId": "p", "quantity": 1, "paymentMethod": "barter"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListSales_BadDates(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodGet, "/v1/sales?from=15-01-2024", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodGet, "/v1/sales?from=2024-02-10&to=2024-02-01", nil).Code)
}

func TestExportSales(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 10)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/v1/sales", map[string]any{"productId": id, "quantity": 1, "paymentMethod": "pix"}).Code)

	now := time.Now().UTC()
	w := api.do(t, http.MethodGet, fmt.Sprintf("/v1/sales/export.xlsx?month=%d&year=%d", int(now.Month()), now.Year()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("vendas_%d-%02d.xlsx", now.Year(), int(now.Month())))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip container")
}

// ── Dashboard ────────────────────────────────────────────────────────────────

func TestDashboard_Complete(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 20)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/v1/sales", map[string]any{"productId": id, "quantity": 4, "paymentMethod": "pix"}).Code)

	w := api.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.NotContains(t, body, "error")
	assert.Equal(t, false, body["partial"])
	assert.EqualValues(t, 1, body["totalProducts"])
	assert.EqualValues(t, 1, body["totalSales"])
	assert.Equal(t, "18", body["monthlyRevenue"])
}

func TestDashboard_DefaultMonthIsUTC(t *testing.T) {
	api := newTestAPI(t)
	id := api.seedProduct(t, 20)
	month, year := model.CurrentMonth(time.Now())
	start, _ := model.MonthRange(month, year)

	for _, at := range []time.Time{start, start.Add(-time.Nanosecond)} {
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/v1/sales", map[string]any{
			"productId": id, "quantity": 1, "paymentMethod": "pix", "saleDate": at.Format(time.RFC3339Nano),
		}).Code)
	}

	w := api.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, month, body["month"])
	assert.EqualValues(t, year, body["year"])
	assert.EqualValues(t, 1, body["totalSales"], "only the sale at the month's first instant counts")
}

func TestDashboard_PartialFailureStill200(t *testing.T) {
	api := newTestAPI(t, dashboard.SourceInventories, dashboard.SourceLowStock)
	api.seedProduct(t, 20)

	w := api.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, msgDashboardPartial, body["error"])
	assert.Equal(t, true, body["partial"])
	assert.EqualValues(t, 1, body["totalProducts"], "healthy sources still report")
	assert.Equal(t, "0", body["inventoryValue"])
}

func TestDashboard_TotalFailure503(t *testing.T) {
	api := newTestAPI(t, dashboard.AllSources...)

	w := api.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, msgDashboardFailed, body["error"])
	assert.EqualValues(t, 0, body["totalProducts"])
}

func TestDashboard_BadMonth(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/dashboard?month=13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/dashboard?year=abc", nil).Code)
}

func TestDashboard_LiveWithoutPoller(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodGet, "/v1/dashboard/live", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, api.do(t, http.MethodPost, "/v1/dashboard/refresh", nil).Code)
}

func TestDashboard_ReportPDF(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/v1/dashboard/report.pdf?month=3&year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "painel_2024-03.pdf")
}

// ── Goals / ledger / health ──────────────────────────────────────────────────

func TestGoals_CreateAndSummary(t *testing.T) {
	api := newTestAPI(t)
	start := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	w := api.do(t, http.MethodPost, "/v1/goals", map[string]any{
		"title": "Faturamento", "type": "sales_revenue", "targetValue": "1000", "startDate": start, "endDate": end,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/v1/goals", map[string]any{
		"title": "Inválida", "type": "sales_revenue", "targetValue": "10", "startDate": end, "endDate": start,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(t, http.MethodGet, "/v1/goals/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Goals []any `json:"goals"`
	}](t, w).Goals, 1)
}

func TestLedger_Transactions(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/ledger/transactions", map[string]any{"kind": "deposit", "amount": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/v1/ledger/transactions", map[string]any{"kind": "withdraw", "amount": "150"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/v1/ledger/transactions", map[string]any{"kind": "transfer", "amount": "10"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "transfer needs a counterpart")

	w = api.do(t, http.MethodGet, "/v1/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"store":"connected","backend":"memory","redis":"disabled"}`, w.Body.String())
}

// ── writeServiceError ────────────────────────────────────────────────────────

func TestWriteServiceError_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apierror.ErrSaleNotFound, http.StatusNotFound},
		{apierror.ErrGoalNotFound, http.StatusNotFound},
		{apierror.ErrDuplicateInventory, http.StatusConflict},
		{ledger.ErrInsufficientFunds, http.StatusConflict},
		{apierror.Invalid("x"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", infra.ErrLockTimeout), http.StatusServiceUnavailable},
		{apierror.ErrInvalidCredentialConfig, http.StatusServiceUnavailable},
		{infra.ErrCircuitOpen, http.StatusServiceUnavailable},
		{service.ErrImagesDisabled, http.StatusNotImplemented},
		{&infra.ProviderError{Status: 400, Message: "INVALID_PASSWORD"}, http.StatusUnauthorized},
		{errors.New("pq: relation does not exist"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ErrorHandler())
			r.GET("/", func(c *gin.Context) { writeServiceError(c, tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, w.Code)
			assert.Contains(t, w.Body.String(), `"detail"`)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("2024-02-01", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = dateRange("2024-02-10", "2024-02-10")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, to.Sub(from))

	from, to, err = dateRange("", "")
	require.NoError(t, err)
	month, year := model.CurrentMonth(time.Now())
	assert.Equal(t, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, from.AddDate(0, 1, 0), to)

	_, _, err = dateRange("2024-02-10", "2024-02-09")
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)

	_, _, err = dateRange("2024-13-01", "")
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)
}
