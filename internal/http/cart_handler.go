package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/validation"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

const restoreNotice = "Your saved cart could not be read and was reset."

// CartHandler serves the session cart and its checkout form. Handlers run
// behind SessionMiddleware.
type CartHandler struct {
	catalog ProductCatalog
	pricing pricing.Policy
	log     *logger.Logger
}

func NewCartHandler(c ProductCatalog, policy pricing.Policy, log *logger.Logger) *CartHandler {
	return &CartHandler{
		catalog: c,
		pricing: policy,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	Slug     string `json:"slug"`
	Quantity *int   `json:"quantity,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type ValidateFieldRequestDTO struct {
	Field string              `json:"field"`
	Form  domain.CheckoutForm `json:"form"`
}

type ValidateFieldResponseDTO struct {
	Field   string `json:"field"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

type CartCheckoutRequestDTO struct {
	Form domain.CheckoutForm `json:"form"`
}

type CartCheckoutResponseDTO struct {
	OrderID   string `json:"orderId"`
	Location  string `json:"location"`
	EmailSent bool   `json:"emailSent"`
}

type CheckoutStateDTO struct {
	Status   domain.CheckoutStatus `json:"status"`
	Failure  domain.FailureKind    `json:"failure,omitempty"`
	InFlight bool                  `json:"inFlight"`
}

type CartResponseDTO struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.CartLine `json:"items"`
	ItemCount int               `json:"itemCount"`
	Totals    domain.Totals     `json:"totals"`
	Notice    string            `json:"notice,omitempty"`
}

func (h *CartHandler) cartResponse(s *session.Session) (CartResponseDTO, error) {
	lines := s.Cart.Lines()
	totals, err := h.pricing.Totals(lines)
	if err != nil {
		return CartResponseDTO{}, err
	}
	resp := CartResponseDTO{
		SessionID: s.ID,
		Items:     lines,
		ItemCount: pricing.ItemCount(lines),
		Totals:    totals,
	}
	if s.Cart.RestoreDiscarded() {
		resp.Notice = restoreNotice
	}
	return resp, nil
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, status int, s *session.Session) {
	resp, err := h.cartResponse(s)
	if err != nil {
		h.log.WithContext(r.Context()).Error("cart totals out of range", "session_id", s.ID, "error", err)
		respondServerError(w)
		return
	}
	respondJSON(w, status, resp)
}

// GET /api/v1/cart
//
// A caller without a session sees an empty cart; nothing is stored until
// the first change.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		totals, _ := h.pricing.Totals(nil)
		respondJSON(w, http.StatusOK, CartResponseDTO{Items: []domain.CartLine{}, Totals: totals})
		return
	}
	h.respondCart(w, r, http.StatusOK, s)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Slug) == "" {
		respondError(w, http.StatusBadRequest, "missing_slug", "slug is required")
		return
	}
	if req.Quantity != nil && *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	product, err := h.catalog.BySlug(req.Slug)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "Product not found")
		return
	}
	if err != nil {
		respondServerError(w)
		return
	}

	s.Cart.AddOrMerge(cart.Item{
		ID:             product.CartID(),
		Name:           product.Name,
		UnitPriceMinor: product.PriceMinor(),
		Slug:           product.Slug,
		ImageRef:       product.ImageURL,
		Quantity:       req.Quantity,
	})

	h.respondCart(w, r, http.StatusCreated, s)
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "missing_quantity", "quantity is required")
		return
	}
	if *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	s.Cart.SetQuantity(chi.URLParam(r, "id"), *req.Quantity)
	h.respondCart(w, r, http.StatusOK, s)
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}
	s.Cart.Remove(chi.URLParam(r, "id"))
	h.respondCart(w, r, http.StatusOK, s)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}
	s.Cart.Clear()
	h.respondCart(w, r, http.StatusOK, s)
}

// POST /api/v1/cart/validate
func (h *CartHandler) ValidateField(w http.ResponseWriter, r *http.Request) {
	var req ValidateFieldRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !validation.IsKnownField(req.Field) {
		respondError(w, http.StatusBadRequest, "unknown_field", "unknown form field")
		return
	}

	msg, ok := validation.ValidateField(req.Field, req.Form)
	respondJSON(w, http.StatusOK, ValidateFieldResponseDTO{Field: req.Field, Valid: ok, Message: msg})
}

// GET /api/v1/cart/checkout
func (h *CartHandler) CheckoutState(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondJSON(w, http.StatusOK, CheckoutStateDTO{Status: domain.CheckoutStatusIdle})
		return
	}
	status, failure := s.Checkout.State()
	respondJSON(w, http.StatusOK, CheckoutStateDTO{Status: status, Failure: failure, InFlight: s.Checkout.InFlight()})
}

// POST /api/v1/cart/checkout/reset
func (h *CartHandler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}
	if !s.Checkout.Reset() {
		respondError(w, http.StatusConflict, "submission_in_progress", "an order is being placed")
		return
	}
	status, failure := s.Checkout.State()
	respondJSON(w, http.StatusOK, CheckoutStateDTO{Status: status, Failure: failure})
}

// POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if s == nil {
		respondError(w, http.StatusUnauthorized, "missing_session", "no cart session")
		return
	}

	var req CartCheckoutRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := s.Checkout.Submit(r.Context(), req.Form)
	if err != nil {
		var verr *checkout.ValidationError
		var serr *checkout.SubmissionError
		switch {
		case errors.As(err, &verr):
			respondFields(w, verr.Fields)
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "empty_cart", "Your cart is empty")
		case errors.Is(err, checkout.ErrInvalidCart):
			respondError(w, http.StatusBadRequest, "invalid_cart", "Your cart total is out of range")
		case errors.Is(err, checkout.ErrSubmissionInProgress):
			respondError(w, http.StatusConflict, "submission_in_progress", "Your order is already being placed")
		case errors.As(err, &serr):
			respondError(w, http.StatusBadGateway, "submission_failed", serr.Message)
		default:
			h.log.WithContext(r.Context()).Error("cart checkout failed", "session_id", s.ID, "error", err)
			respondServerError(w)
		}
		return
	}

	w.Header().Set("Location", res.ConfirmationPath)
	respondJSON(w, http.StatusCreated, CartCheckoutResponseDTO{
		OrderID:   res.OrderID,
		Location:  res.ConfirmationPath,
		EmailSent: res.NotificationErr == nil,
	})
}
