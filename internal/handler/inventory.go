package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/middleware"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	moves, err := h.svc.Movements(c.Request.Context(), c.Param("id"), filter.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": moves, "total": len(moves)})
}

// AddStock answers 201 when the inventory record was created by this call.
func (h *InventoryHandler) AddStock(c *gin.Context) {
	var req dto.AddStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.PerformedBy = middleware.Principal(c)
	res, err := h.svc.AddStock(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.PerformedBy = middleware.Principal(c)
	res, err := h.svc.Adjust(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) Remove(c *gin.Context) {
	var req dto.RemoveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.PerformedBy = middleware.Principal(c)
	res, err := h.svc.Remove(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
