package checkout

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Submit validates the form, records the order and clears the cart.
//
// A call made while another is running returns ErrSubmissionInProgress and
// has no effect. Validation failures return *ValidationError, an empty cart
// returns ErrEmptyCart, a cart whose totals overflow returns ErrInvalidCart,
// and an order store failure returns *SubmissionError; in every one of
// these cases the cart is left untouched.
func (p *Pipeline) Submit(ctx context.Context, form domain.CheckoutForm) (*Result, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		observability.CheckoutOutcomes.WithLabelValues("in_flight").Inc()
		return nil, ErrSubmissionInProgress
	}
	defer p.inFlight.Store(false)

	ctx, span := observability.Tracer().Start(ctx, "checkout.Submit")
	defer span.End()
	log := p.log.WithContext(ctx)

	// a finished checkout is followed by a fresh form instance
	if p.Status() == domain.CheckoutStatusSucceeded {
		p.mu.Lock()
		p.status = domain.CheckoutStatusIdle
		p.mu.Unlock()
	}

	if err := p.transition(domain.CheckoutStatusValidating); err != nil {
		return nil, err
	}

	if errs := validation.ValidateCheckoutForm(form); errs != nil {
		p.fail(domain.FailureValidation)
		observability.CheckoutOutcomes.WithLabelValues("invalid_form").Inc()
		span.SetAttributes(attribute.Int("checkout.invalid_fields", len(errs)))
		return nil, &ValidationError{Fields: errs}
	}

	lines := orderableLines(p.cart.Lines())
	if len(lines) == 0 {
		p.fail(domain.FailureCart)
		observability.CheckoutOutcomes.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	// totals are always recomputed here; figures shown earlier are not trusted
	totals, err := p.pricing.Totals(lines)
	if err != nil {
		p.fail(domain.FailureCart)
		observability.CheckoutOutcomes.WithLabelValues("invalid_cart").Inc()
		log.Warn("cart totals out of range", "lines", len(lines), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCart, err)
	}
	req := buildOrderRequest(form, lines, totals)

	if err := p.transition(domain.CheckoutStatusSubmitting); err != nil {
		return nil, err
	}

	orderID := p.newOrderID()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int64("order.total_minor", totals.TotalMinor))

	order, err := p.orders.CreateOrder(ctx, req, orderID)
	if err != nil {
		p.fail(domain.FailureSubmission)
		observability.CheckoutOutcomes.WithLabelValues("submission_failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		log.Error("order submission failed", "order_id", orderID, "error", err)
		return nil, submissionError(err)
	}
	if order == nil {
		order = &domain.Order{
			OrderID:  orderID,
			Customer: req.Customer,
			Shipping: req.Shipping,
			Items:    req.Items,
			Totals:   req.Totals,
			Status:   domain.OrderStatusProcessing,
		}
	}

	result := &Result{
		OrderID:          order.OrderID,
		ConfirmationPath: ConfirmationPath(order.OrderID),
		Order:            order,
	}
	result.NotificationErr = p.sendConfirmation(ctx, order)

	p.cart.Clear()
	if err := p.transition(domain.CheckoutStatusSucceeded); err != nil {
		// unreachable from submitting; keep the order result regardless
		log.Error("checkout state machine out of sync", "error", err)
	}
	observability.CheckoutOutcomes.WithLabelValues("succeeded").Inc()
	log.Info("order placed", "order_id", order.OrderID, "total_minor", order.Totals.TotalMinor, "items", len(order.Items))
	return result, nil
}

// sendConfirmation never fails the checkout. It runs on a context detached
// from the caller so a dropped client does not cancel the email.
func (p *Pipeline) sendConfirmation(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.notifyTimeout)
	defer cancel()

	ctx, span := observability.Tracer().Start(ctx, "checkout.SendConfirmation")
	defer span.End()
	log := p.log.WithContext(ctx)

	html, err := p.renderer.RenderConfirmation(order)
	if err != nil {
		observability.ConfirmationEmailFailures.WithLabelValues("render").Inc()
		span.RecordError(err)
		log.Error("failed to render confirmation email", "order_id", order.OrderID, "error", err)
		return err
	}

	if err := p.notifier.SendOrderConfirmation(ctx, order.Customer.Email, order.OrderID, html); err != nil {
		observability.ConfirmationEmailFailures.WithLabelValues("send").Inc()
		span.RecordError(err)
		log.Warn("confirmation email failed, order kept", "order_id", order.OrderID, "email", order.Customer.Email, "error", err)
		return err
	}
	return nil
}

func ConfirmationPath(orderID string) string {
	return "/order/" + url.PathEscape(orderID)
}
