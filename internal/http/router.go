package http

import (
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Checkout    *CheckoutHandler
	Orders      *OrdersHandler
	Cart        *CartHandler
	Products    *ProductHandler
	Diagnostics *DiagnosticsHandler
	Sessions    SessionProvider
}

func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/health", Health)
	r.Handle("/metrics", observability.MetricsHandler())
	r.Get("/email/diagnostics", h.Diagnostics.Email)

	r.Get("/products", h.Products.List)
	r.Get("/products/{slug}", h.Products.Get)

	r.Post("/checkout", h.Checkout.CreateOrder)
	r.Get("/order/{orderId}", h.Orders.GetOrder)
	// chi does not match an empty path parameter
	r.Get("/order/", h.Orders.GetOrder)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Post("/validate", h.Cart.ValidateField)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(h.Sessions, log))

			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{id}", h.Cart.RemoveItem)
			r.Get("/checkout", h.Cart.CheckoutState)
			r.Post("/checkout", h.Cart.Checkout)
			r.Post("/checkout/reset", h.Cart.ResetCheckout)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/health" && req.URL.Path != "/metrics"
		}))
}
