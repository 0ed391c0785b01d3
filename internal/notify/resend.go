package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/storefront/pkg/logger"
	"github.com/resend/resend-go/v2"
)

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	emails emailSender
	from   string
	log    *logger.Logger
}

func NewResendMailer(cfg Config, log *logger.Logger) *ResendMailer {
	cfg = cfg.withDefaults()
	client := resend.NewClient(cfg.APIKey)
	return &ResendMailer{emails: client.Emails, from: cfg.FromEmail, log: log}
}

func (m *ResendMailer) SendOrderConfirmation(ctx context.Context, to, orderID, html string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: Subject(orderID),
		Html:    html,
	}

	sent, err := m.emails.SendWithContext(ctx, params)
	if err != nil {
		if strings.Contains(err.Error(), "domain is not verified") {
			m.log.Error("resend rejected sender domain; use onboarding@resend.dev for testing or verify the domain",
				"from", m.from)
		}
		return fmt.Errorf("resend send: %w", err)
	}

	m.log.Info("confirmation email sent", "order_id", orderID, "email_id", sent.Id, "to_email", to)
	return nil
}

// DisabledMailer is used when no API key is configured. Orders still go
// through; every send reports ErrMailerNotConfigured.
type DisabledMailer struct {
	log *logger.Logger
}

func NewDisabledMailer(log *logger.Logger) *DisabledMailer {
	return &DisabledMailer{log: log}
}

func (m *DisabledMailer) SendOrderConfirmation(_ context.Context, to, orderID, _ string) error {
	m.log.Warn("email service not configured, skipping confirmation", "order_id", orderID, "to_email", to)
	return ErrMailerNotConfigured
}
