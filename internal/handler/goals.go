package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

type GoalsHandler struct{ svc service.GoalService }

func NewGoalsHandler(svc service.GoalService) *GoalsHandler {
	return &GoalsHandler{svc: svc}
}

func (h *GoalsHandler) Create(c *gin.Context) {
	var req dto.CreateGoalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	g, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *GoalsHandler) List(c *gin.Context) {
	goals, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": goals, "total": len(goals)})
}

func (h *GoalsHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *GoalsHandler) UpdateProgress(c *gin.Context) {
	var req dto.UpdateGoalProgressRequest
	if !bindAndValidate(c, &req) {
		return
	}
	gp, err := h.svc.UpdateProgress(c.Request.Context(), c.Param("id"), req.CurrentValue)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gp)
}

func (h *GoalsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
