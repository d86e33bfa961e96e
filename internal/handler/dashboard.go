package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

const (
	msgDashboardPartial = "Alguns dados do painel não puderam ser carregados"
	msgDashboardFailed  = "Não foi possível carregar os dados do painel"
)

type dashboardResponse struct {
	*dashboard.Snapshot
	Error string `json:"error,omitempty"`
}

type DashboardHandler struct {
	agg     *dashboard.Aggregator
	poller  *dashboard.Poller
	cache   dashboard.SnapshotCache
	reports service.ReportService
}

// NewDashboardHandler wires the dashboard endpoints. poller and cache may be nil.
func NewDashboardHandler(agg *dashboard.Aggregator, poller *dashboard.Poller, cache dashboard.SnapshotCache, reports service.ReportService) *DashboardHandler {
	return &DashboardHandler{agg: agg, poller: poller, cache: cache, reports: reports}
}

// Get computes the snapshot for ?month&year. Failed sources degrade to their
// defaults with partial=true; only a total failure is a 503.
func (h *DashboardHandler) Get(c *gin.Context) {
	month, year, ok := monthYear(c)
	if !ok {
		return
	}
	snap, err := h.agg.ComputeDashboard(c.Request.Context(), month, year)
	switch {
	case errors.Is(err, dashboard.ErrAllSourcesFailed):
		c.JSON(http.StatusServiceUnavailable, dashboardResponse{Snapshot: snap, Error: msgDashboardFailed})
	case err != nil:
		writeServiceError(c, err)
	case snap.Partial:
		c.JSON(http.StatusOK, dashboardResponse{Snapshot: snap, Error: msgDashboardPartial})
	default:
		c.JSON(http.StatusOK, dashboardResponse{Snapshot: snap})
	}
}

// Live returns the poller's latest snapshot, falling back to the shared cache
// when this instance has not finished its first run.
func (h *DashboardHandler) Live(c *gin.Context) {
	var snap *dashboard.Snapshot
	if h.poller != nil {
		snap = h.poller.Latest()
	}
	if snap == nil && h.cache != nil {
		month, year := model.CurrentMonth(time.Now())
		cached, err := h.cache.Get(c.Request.Context(), month, year)
		if err != nil && !errors.Is(err, dashboard.ErrNoSnapshot) {
			log.Warn().Err(err).Msg("dashboard: snapshot cache read failed")
		}
		snap = cached
	}
	if snap == nil {
		if h.poller != nil {
			h.poller.Trigger()
		}
		c.Status(http.StatusNoContent)
		return
	}
	resp := dashboardResponse{Snapshot: snap}
	if snap.Partial {
		resp.Error = msgDashboardPartial
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) Refresh(c *gin.Context) {
	if h.poller == nil {
		c.JSON(http.StatusNotImplemented, apierror.New("Atualização automática desativada"))
		return
	}
	h.poller.Trigger()
	c.Status(http.StatusAccepted)
}

func (h *DashboardHandler) ReportPDF(c *gin.Context) {
	month, year, ok := monthYear(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.DashboardPDF(c.Request.Context(), month, year, &buf); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="painel_%d-%02d.pdf"`, year, month))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *DashboardHandler) EmailReport(c *gin.Context) {
	var req dto.ReportEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}
	month, year := model.CurrentMonth(time.Now())
	if req.Month == 0 {
		req.Month = month
	}
	if req.Year == 0 {
		req.Year = year
	}
	path, err := h.reports.MailDashboard(c.Request.Context(), req.Month, req.Year, req.To)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "file": path})
}
