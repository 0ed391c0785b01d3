package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, to, orderID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+orderID)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type failingOrderStore struct{}

func (failingOrderStore) CreateOrder(context.Context, domain.OrderRequest, string) (*domain.Order, error) {
	return nil, errors.New("connection refused")
}

type stubRenderer struct{}

func (stubRenderer) RenderConfirmation(order *domain.Order) (string, error) {
	return "<p>" + order.OrderID + "</p>", nil
}

type testEnv struct {
	handler  http.Handler
	repo     *repository.MemoryRepository
	notifier *fakeNotifier
	sessions *session.Manager
	slots    *session.MemorySlotPool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := orders.NewService(repo)
	notifier := &fakeNotifier{}
	policy := pricing.DefaultPolicy()
	log := logger.NewNop()

	products, err := catalog.Load()
	require.NoError(t, err)

	slots := session.NewMemorySlotPool(time.Hour)
	sessions := session.NewManager(session.NewFactory(session.Dependencies{
		Slots:    slots.Open,
		Release:  slots.Release,
		Orders:   svc,
		Notifier: notifier,
		Renderer: stubRenderer{},
		Pricing:  policy,
	}), time.Minute, log)
	t.Cleanup(func() { _ = sessions.Close() })

	deps := CheckoutDeps{Orders: svc, Notifier: notifier, Renderer: stubRenderer{}, Pricing: policy}
	handler := NewRouter(RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20}, Handlers{
		Checkout:    NewCheckoutHandler(deps, log, 5*time.Second),
		Orders:      NewOrdersHandler(svc, log, 5*time.Second),
		Cart:        NewCartHandler(products, policy, log),
		Products:    NewProductHandler(products),
		Diagnostics: NewDiagnosticsHandler(notify.Diagnose(notify.Config{}, "disabled")),
		Sessions:    sessions,
	}, log)

	return &testEnv{handler: handler, repo: repo, notifier: notifier, sessions: sessions, slots: slots}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, path, &buf))
	return rec
}
