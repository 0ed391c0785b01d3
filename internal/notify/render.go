package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
)

//go:embed templates/confirmation.html
var confirmationTemplate string

// Renderer turns an order into the confirmation email body.
type Renderer struct {
	cfg  Config
	tmpl *template.Template
}

func NewRenderer(cfg Config) (*Renderer, error) {
	cfg = cfg.withDefaults()
	funcs := template.FuncMap{
		"money": func(minor int64) string {
			return pricing.FormatMinor(minor, cfg.Currency)
		},
		"lineTotal": func(l domain.CartLine) int64 {
			return l.LineTotalMinor()
		},
	}
	tmpl, err := template.New("confirmation").Funcs(funcs).Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation template: %w", err)
	}
	return &Renderer{cfg: cfg, tmpl: tmpl}, nil
}

type confirmationView struct {
	StoreName    string
	Order        *domain.Order
	OrderURL     string
	SupportEmail string
}

func (r *Renderer) RenderConfirmation(order *domain.Order) (string, error) {
	if order == nil {
		return "", fmt.Errorf("render confirmation: nil order")
	}
	view := confirmationView{
		StoreName:    r.cfg.StoreName,
		Order:        order,
		OrderURL:     r.OrderURL(order.OrderID),
		SupportEmail: r.cfg.SupportEmail,
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) OrderURL(orderID string) string {
	return r.cfg.PublicBaseURL + "/order/" + url.PathEscape(orderID)
}
