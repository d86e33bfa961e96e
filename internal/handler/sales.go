package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/middleware"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

// Create registers a sale. The Idempotency-Key header is used when the body
// carries no idempotencyKey.
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	req.PerformedBy = middleware.Principal(c)

	sale, err := h.svc.CreateSale(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	from, to, err := dateRange(filter.From, filter.To)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp, err := h.svc.ListByRange(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Get(c *gin.Context) {
	sale, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *SalesHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateSaleStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sale, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Export streams the month's sales as a spreadsheet. The workbook is built
// in memory first so a failure still gets a JSON error.
func (h *SalesHandler) Export(c *gin.Context) {
	month, year, ok := monthYear(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(c.Request.Context(), month, year, &buf); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="vendas_%d-%02d.xlsx"`, year, month))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *SalesHandler) RangeDashboard(c *gin.Context) {
	var filter dto.SalesRangeFilter
	if !bindQuery(c, &filter) {
		return
	}
	from, to, err := dateRange(filter.From, filter.To)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp, err := h.svc.RangeDashboard(c.Request.Context(), from, to, filter.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
