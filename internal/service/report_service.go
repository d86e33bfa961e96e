package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
)

type ReportService interface {
	// DashboardPDF renders the month's snapshot. Partial snapshots are rendered
	// with a note; only a total failure is returned as an error.
	DashboardPDF(ctx context.Context, month, year int, w io.Writer) error
	// MailDashboard writes the PDF to disk and queues it for delivery.
	MailDashboard(ctx context.Context, month, year int, to string) (string, error)
}

type reportService struct {
	agg        *dashboard.Aggregator
	dispatcher JobDispatcher
	dir        string
}

func NewReportService(agg *dashboard.Aggregator, dispatcher JobDispatcher, dir string) ReportService {
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &reportService{agg: agg, dispatcher: dispatcher, dir: dir}
}

func (s *reportService) DashboardPDF(ctx context.Context, month, year int, w io.Writer) error {
	snap, err := s.agg.ComputeDashboard(ctx, month, year)
	if err != nil {
		return err
	}
	return infra.RenderDashboardPDF(w, snap)
}

func (s *reportService) MailDashboard(ctx context.Context, month, year int, to string) (string, error) {
	snap, err := s.agg.ComputeDashboard(ctx, month, year)
	if err != nil {
		return "", err
	}
	path, err := infra.WriteDashboardPDF(snap, s.dir)
	if err != nil {
		return "", err
	}
	job := dto.ReportEmailJob{
		To:      to,
		Subject: fmt.Sprintf("FIAP Farms: relatório %02d/%d", month, year),
		Body:    fmt.Sprintf("Segue em anexo o relatório do painel de %02d/%d.", month, year),
		Path:    path,
	}
	if err := s.dispatcher.EnqueueReportEmail(ctx, job); err != nil {
		return path, err
	}
	return path, nil
}
