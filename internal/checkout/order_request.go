package checkout

import (
	"strings"

	"github.com/fjod/storefront/internal/domain"
)

func orderableLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.IsOrderable() {
			out = append(out, l)
		}
	}
	return out
}

// buildOrderRequest trims every text field and lower-cases the email.
func buildOrderRequest(form domain.CheckoutForm, lines []domain.CartLine, totals domain.Totals) domain.OrderRequest {
	return domain.OrderRequest{
		Customer: domain.Customer{
			Name:  strings.TrimSpace(form.FullName),
			Email: strings.ToLower(strings.TrimSpace(form.Email)),
			Phone: strings.TrimSpace(form.Phone),
		},
		Shipping: domain.ShippingAddress{
			AddressLine1: strings.TrimSpace(form.AddressLine1),
			AddressLine2: strings.TrimSpace(form.AddressLine2),
			City:         strings.TrimSpace(form.City),
			PostalCode:   strings.TrimSpace(form.PostalCode),
			Country:      strings.TrimSpace(form.Country),
		},
		Items:  lines,
		Totals: totals,
	}
}
