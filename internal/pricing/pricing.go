// Package pricing derives order totals from cart lines. All amounts are
// integer minor units; the tax rate is the only non-integer input.
package pricing

import (
	"errors"
	"math"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultShippingMinor int64 = 2000

// MaxUnitPriceMinor is the largest unit price accepted from a client,
// 10,000,000.00 in major units.
const MaxUnitPriceMinor int64 = 1_000_000_000

var DefaultTaxRate = decimal.RequireFromString("0.16")

// ErrAmountOverflow is returned when a total no longer fits in int64 minor units.
var ErrAmountOverflow = errors.New("amount exceeds representable range")

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Policy holds the flat shipping fee and the tax rate applied at checkout.
type Policy struct {
	ShippingMinor int64
	TaxRate       decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{ShippingMinor: DefaultShippingMinor, TaxRate: DefaultTaxRate}
}

func (p Policy) Totals(lines []domain.CartLine) (domain.Totals, error) {
	return ComputeTotals(lines, p.ShippingMinor, p.TaxRate)
}

// ComputeTotals taxes the subtotal once, rounded half away from zero.
// Shipping is never taxed. Sums are carried in decimal so an oversized
// cart fails with ErrAmountOverflow instead of wrapping.
func ComputeTotals(lines []domain.CartLine, shippingMinor int64, taxRate decimal.Decimal) (domain.Totals, error) {
	subtotal, err := subtotalDecimal(lines)
	if err != nil {
		return domain.Totals{}, err
	}
	taxes := subtotal.Mul(taxRate).Round(0)
	total := subtotal.Add(decimal.NewFromInt(shippingMinor)).Add(taxes)
	if taxes.GreaterThan(maxMinor) || total.GreaterThan(maxMinor) || total.IsNegative() {
		return domain.Totals{}, ErrAmountOverflow
	}
	return domain.Totals{
		SubtotalMinor: subtotal.IntPart(),
		ShippingMinor: shippingMinor,
		TaxesMinor:    taxes.IntPart(),
		TotalMinor:    total.IntPart(),
	}, nil
}

func Subtotal(lines []domain.CartLine) (int64, error) {
	sum, err := subtotalDecimal(lines)
	if err != nil {
		return 0, err
	}
	return sum.IntPart(), nil
}

func subtotalDecimal(lines []domain.CartLine) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range lines {
		line := decimal.NewFromInt(l.UnitPriceMinor).Mul(decimal.NewFromInt(int64(l.Quantity)))
		sum = sum.Add(line)
	}
	if sum.GreaterThan(maxMinor) || sum.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return decimal.Zero, ErrAmountOverflow
	}
	return sum, nil
}

func ItemCount(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func Taxes(subtotalMinor int64, taxRate decimal.Decimal) int64 {
	// decimal.Round rounds half away from zero.
	return decimal.NewFromInt(subtotalMinor).Mul(taxRate).Round(0).IntPart()
}

// FormatMinor renders an amount for display, e.g. "KES 4,500.00".
// The result is presentation only and is never parsed back.
func FormatMinor(amountMinor int64, currency string) string {
	fixed := decimal.New(amountMinor, -2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	major, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range major {
		if i > 0 && (len(major)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := sign + b.String() + "." + cents
	if currency == "" {
		return out
	}
	return currency + " " + out
}
