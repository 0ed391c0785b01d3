package notify

import (
	"context"

	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
)

// BreakerMailer stops calling a failing provider for a while instead of
// making every checkout wait on its timeout.
type BreakerMailer struct {
	next Mailer
	cb   *circuitbreaker.Breaker[struct{}]
}

func NewBreakerMailer(next Mailer, cfg circuitbreaker.Config, log *logger.Logger) *BreakerMailer {
	return &BreakerMailer{
		next: next,
		cb:   circuitbreaker.New[struct{}](cfg, log),
	}
}

func (b *BreakerMailer) SendOrderConfirmation(ctx context.Context, to, orderID, html string) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendOrderConfirmation(ctx, to, orderID, html)
	})
	return err
}
