// Package notify delivers order confirmation emails. Delivery is best
// effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"
	"strings"
)

const DefaultFromEmail = "onboarding@resend.dev"

var ErrMailerNotConfigured = errors.New("email service is not configured")

// Mailer sends one rendered confirmation email.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, orderID, html string) error
}

type Config struct {
	APIKey        string
	FromEmail     string
	SupportEmail  string
	PublicBaseURL string
	Currency      string
	StoreName     string
}

func (c Config) withDefaults() Config {
	if c.FromEmail == "" {
		c.FromEmail = DefaultFromEmail
	}
	if c.SupportEmail == "" {
		c.SupportEmail = "support@example.com"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:3000"
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if c.Currency == "" {
		c.Currency = "KES"
	}
	if c.StoreName == "" {
		c.StoreName = "Audiophile"
	}
	return c
}

func Subject(orderID string) string {
	return "Order confirmation — " + orderID
}
