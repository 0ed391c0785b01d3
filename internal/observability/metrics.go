package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	CheckoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_outcomes_total",
		Help:      "Checkout submissions by outcome.",
	}, []string{"outcome"})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders durably recorded.",
	})

	ConfirmationEmailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmation_email_failures_total",
		Help:      "Order confirmation emails that could not be rendered or sent.",
	}, []string{"reason"})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation.",
	}, []string{"op"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Cart sessions currently held in memory.",
	})
)

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
