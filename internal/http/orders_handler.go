package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, bool, error)
}

type OrdersHandler struct {
	orders  OrderReader
	log     *logger.Logger
	timeout time.Duration
}

func NewOrdersHandler(orders OrderReader, log *logger.Logger, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		log:     log,
		timeout: timeout,
	}
}

// GET /order/{orderId}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "orderId is required")
		return
	}

	order, found, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		h.log.WithContext(ctx).Error("failed to fetch order", "order_id", orderID, "error", err)
		respondServerError(w)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}
