package notify

import (
	"strings"

	"github.com/fjod/storefront/pkg/logger"
)

// Free-mail providers that Resend will not send from without verification.
var unverifiedDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"icloud.com":  {},
	"aol.com":     {},
}

type Diagnostics struct {
	HasAPIKey            bool   `json:"hasResendApiKey"`
	APIKeyPrefix         string `json:"apiKeyPrefix"`
	FromEmail            string `json:"fromEmail"`
	FromEmailConfigured  bool   `json:"fromEmailConfigured"`
	FromDomainUnverified bool   `json:"fromDomainUnverified"`
	Delivery             string `json:"delivery"`
	Status               string `json:"status"`
	Message              string `json:"message"`
}

// Diagnose reports whether confirmation emails can be sent with cfg.
func Diagnose(cfg Config, delivery string) Diagnostics {
	cfg = cfg.withDefaults()
	d := Diagnostics{
		HasAPIKey:            cfg.APIKey != "",
		APIKeyPrefix:         "N/A",
		FromEmail:            cfg.FromEmail,
		FromEmailConfigured:  cfg.FromEmail != DefaultFromEmail,
		FromDomainUnverified: IsUnverifiedSenderDomain(cfg.FromEmail),
		Delivery:             delivery,
	}
	if len(cfg.APIKey) >= 3 {
		d.APIKeyPrefix = cfg.APIKey[:3]
	}

	switch {
	case !d.HasAPIKey:
		d.Status = "not_configured"
		d.Message = "RESEND_API_KEY is missing. Orders are accepted but confirmation emails are not sent."
	case d.FromDomainUnverified:
		d.Status = "misconfigured"
		d.Message = "FROM_EMAIL uses a free-mail domain Resend cannot send from. Use onboarding@resend.dev for testing or a verified domain."
	default:
		d.Status = "ready"
		d.Message = "Email service is configured."
	}
	return d
}

func IsUnverifiedSenderDomain(from string) bool {
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return false
	}
	_, bad := unverifiedDomains[strings.ToLower(from[at+1:])]
	return bad
}

// LogDiagnostics writes the startup email configuration check.
func LogDiagnostics(log *logger.Logger, d Diagnostics) {
	switch d.Status {
	case "ready":
		log.Info("email service ready", "from", d.FromEmail, "delivery", d.Delivery)
	case "misconfigured":
		log.Error("email sender domain cannot be used", "from", d.FromEmail, "hint", d.Message)
	default:
		log.Warn("email service not configured", "hint", d.Message)
	}
}
