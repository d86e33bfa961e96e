package worker

// Processes alert jobs from QueueAlerts: low-stock notices and report mail.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
)

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Configured() bool
	Send(to, subject, body, attachmentPath string) error
}

// LowStockWorker mails the configured recipient when a record drops below its minimum.
type LowStockWorker struct {
	mailer    MailSender
	recipient func() string
}

// NewLowStockWorker reads the recipient on every job so config reloads apply.
func NewLowStockWorker(mailer MailSender, recipient func() string) *LowStockWorker {
	return &LowStockWorker{mailer: mailer, recipient: recipient}
}

func (w *LowStockWorker) Process(_ context.Context, raw json.RawMessage) error {
	var job dto.LowStockJob
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid low stock payload")
		return nil
	}
	to := w.recipient()
	if to == "" || !w.mailer.Configured() {
		log.Debug().Str("inventory_id", job.InventoryID).Msg("email_worker: no alert recipient, skipping")
		return nil
	}

	name := job.ProductName
	if name == "" {
		name = job.ProductID
	}
	subject := fmt.Sprintf("Estoque baixo: %s", name)
	body := fmt.Sprintf("O produto %s está com %d unidades em estoque (mínimo %d).\nInventário: %s",
		name, job.CurrentStock, job.MinimumStock, job.InventoryID)
	if err := w.mailer.Send(to, subject, body, ""); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	log.Info().Str("to", to).Str("product_id", job.ProductID).Msg("email_worker: low stock alert sent")
	return nil
}

// ReportEmailWorker delivers generated report files.
type ReportEmailWorker struct {
	mailer MailSender
}

func NewReportEmailWorker(mailer MailSender) *ReportEmailWorker {
	return &ReportEmailWorker{mailer: mailer}
}

func (w *ReportEmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var job dto.ReportEmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid report payload")
		return nil
	}
	if job.To == "" {
		log.Warn().Msg("email_worker: empty recipient, skipping")
		return nil
	}
	if !w.mailer.Configured() {
		return fmt.Errorf("smtp relay not configured")
	}
	if err := w.mailer.Send(job.To, job.Subject, job.Body, job.Path); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	log.Info().Str("to", job.To).Str("path", job.Path).Msg("email_worker: report sent")
	return nil
}
