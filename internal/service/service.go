package service

import (
	"context"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
)

// DefaultPerformer is recorded on movements when no principal is known.
const DefaultPerformer = "Sistema"

// SaleMovementReason is the reason recorded on the outbound movement of a sale.
const SaleMovementReason = "Venda"

// JobDispatcher hands follow-up work to the background workers. Enqueue
// failures never undo the write that triggered them.
type JobDispatcher interface {
	EnqueueGoalProgress(ctx context.Context, job dto.GoalProgressJob) error
	EnqueueLowStockAlert(ctx context.Context, job dto.LowStockJob) error
	EnqueueReportEmail(ctx context.Context, job dto.ReportEmailJob) error
}

// NopDispatcher drops every job.
type NopDispatcher struct{}

func (NopDispatcher) EnqueueGoalProgress(context.Context, dto.GoalProgressJob) error { return nil }
func (NopDispatcher) EnqueueLowStockAlert(context.Context, dto.LowStockJob) error    { return nil }
func (NopDispatcher) EnqueueReportEmail(context.Context, dto.ReportEmailJob) error   { return nil }

func performer(name string) string {
	if name == "" {
		return DefaultPerformer
	}
	return name
}

func productLockKey(productID string) string { return "product:" + productID }
