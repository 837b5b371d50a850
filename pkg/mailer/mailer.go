package mailer

import (
	"context"
	"fmt"

	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/resend/resend-go/v2"
)

// Sender delivers out-of-band notifications. Callers treat delivery as
// best-effort: a failed send must never roll back the operation that
// triggered it.
type Sender interface {
	SendTempPassword(ctx context.Context, toEmail, firstName, tempPassword string) error
}

// Mailer sends transactional mail through Resend.
type Mailer struct {
	client *resend.Client
	from   string
	logg   *logger.Logger
}

// New builds a Resend-backed mailer. An empty API key yields a nil mailer,
// which callers must treat as "mail disabled".
func New(cfg config.MailerConfig, logg *logger.Logger) *Mailer {
	if cfg.APIKey == "" {
		return nil
	}
	return &Mailer{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.DefaultFrom,
		logg:   logg,
	}
}

// SendTempPassword mails a freshly generated temporary password to a user
// created by an administrator.
func (m *Mailer) SendTempPassword(ctx context.Context, toEmail, firstName, tempPassword string) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mailer not configured")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Your account credentials",
		Text: fmt.Sprintf(
			"Hello %s,\n\nAn administrator created an account for you.\n\nTemporary password: %s\n\nPlease sign in and change it as soon as possible.\n",
			firstName, tempPassword,
		),
	}

	if _, err := m.client.Emails.Send(params); err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "failed to send temp password mail", err)
		}
		return fmt.Errorf("send temp password mail: %w", err)
	}
	return nil
}
