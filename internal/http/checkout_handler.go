package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/pkg/logger"
)

// CheckoutDeps are the collaborators shared by every checkout pipeline the
// handlers build.
type CheckoutDeps struct {
	Orders        checkout.OrderStore
	Notifier      checkout.Notifier
	Renderer      checkout.ConfirmationRenderer
	Pricing       pricing.Policy
	NotifyTimeout time.Duration
}

func (d CheckoutDeps) options() []checkout.Option {
	if d.NotifyTimeout > 0 {
		return []checkout.Option{checkout.WithNotifyTimeout(d.NotifyTimeout)}
	}
	return nil
}

// CheckoutHandler is the order submission endpoint for clients that keep
// their own cart and post it whole.
type CheckoutHandler struct {
	deps    CheckoutDeps
	log     *logger.Logger
	timeout time.Duration
}

func NewCheckoutHandler(deps CheckoutDeps, log *logger.Logger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		deps:    deps,
		log:     log,
		timeout: timeout,
	}
}

type CheckoutRequestDTO struct {
	Customer *domain.Customer        `json:"customer"`
	Shipping *domain.ShippingAddress `json:"shipping"`
	Items    []domain.CartLine       `json:"items"`
	// Totals is accepted for compatibility and never trusted.
	Totals *domain.Totals `json:"totals,omitempty"`
}

type CheckoutResponseDTO struct {
	OrderID string `json:"orderId"`
}

// POST /checkout
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.log.WithContext(ctx)

	var req CheckoutRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Customer == nil || strings.TrimSpace(req.Customer.Email) == "" {
		respondError(w, http.StatusBadRequest, "missing_customer", "customer.email is required")
		return
	}
	if req.Shipping == nil {
		respondError(w, http.StatusBadRequest, "missing_shipping", "shipping address is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "missing_items", "items are required")
		return
	}
	if err := validateItems(req.Items); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_items", err.Error())
		return
	}

	form := domain.CheckoutForm{
		FullName:     req.Customer.Name,
		Email:        req.Customer.Email,
		Phone:        req.Customer.Phone,
		AddressLine1: req.Shipping.AddressLine1,
		AddressLine2: req.Shipping.AddressLine2,
		City:         req.Shipping.City,
		PostalCode:   req.Shipping.PostalCode,
		Country:      req.Shipping.Country,
		// posting the order is the customer's acceptance
		AcceptTerms: true,
	}

	pipeline := checkout.NewPipeline(
		cart.NewEphemeral(req.Items, log),
		h.deps.Orders, h.deps.Notifier, h.deps.Renderer, h.deps.Pricing, log,
		h.deps.options()...)

	res, err := pipeline.Submit(ctx, form)
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.As(err, &verr):
			respondFields(w, verr.Fields)
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "empty_cart", "no orderable items")
		case errors.Is(err, checkout.ErrInvalidCart):
			respondError(w, http.StatusBadRequest, "invalid_items", "order total is out of range")
		default:
			log.Error("checkout failed", "error", err)
			respondServerError(w)
		}
		return
	}

	if req.Totals != nil && *req.Totals != res.Order.Totals {
		log.Warn("client totals differ from recomputed totals",
			"order_id", res.OrderID,
			"client_total_minor", req.Totals.TotalMinor,
			"total_minor", res.Order.Totals.TotalMinor)
	}

	w.Header().Set("Location", res.ConfirmationPath)
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{OrderID: res.OrderID})
}

// validateItems enforces at the boundary what a cart store would have
// guaranteed: ids are unique, every line is orderable, and prices and
// quantities stay within the caps the cart API applies.
func validateItems(items []domain.CartLine) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.ID) == "":
			return fmt.Errorf("items[%d]: id is required", i)
		case strings.TrimSpace(it.Name) == "":
			return fmt.Errorf("items[%d]: name is required", i)
		case it.UnitPriceMinor <= 0:
			return fmt.Errorf("items[%d]: price must be positive", i)
		case it.UnitPriceMinor > pricing.MaxUnitPriceMinor:
			return fmt.Errorf("items[%d]: price must be at most %d", i, pricing.MaxUnitPriceMinor)
		case it.Quantity <= 0:
			return fmt.Errorf("items[%d]: quantity must be positive", i)
		case it.Quantity > maxQuantity:
			return fmt.Errorf("items[%d]: quantity must be at most %d", i, maxQuantity)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("items[%d]: duplicate id %q", i, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
