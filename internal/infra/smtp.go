package infra

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
)

// Mailer sends plain-text mail with optional attachments through SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config, cb *CircuitBreaker) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       cb,
	}
}

// Configured reports whether an SMTP relay is set.
func (m *Mailer) Configured() bool { return m.host != "" }

// Breaker exposes the SMTP circuit breaker for the retry cron.
func (m *Mailer) Breaker() *CircuitBreaker { return m.cb }

// Send delivers a message; attachmentPath may be empty.
func (m *Mailer) Send(to, subject, body, attachmentPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if attachmentPath != "" {
		if _, err := e.AttachFile(attachmentPath); err != nil {
			return fmt.Errorf("mailer: attach: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.cb.Execute(func() error {
		return e.Send(m.addr, auth)
	})
}
