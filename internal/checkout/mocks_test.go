package checkout

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

// MockOrderStore implements OrderStore for testing
type MockOrderStore struct {
	mu        sync.Mutex
	Err       error
	Calls     int
	Requests  []domain.OrderRequest
	OrderIDs  []string
	ReturnNil bool
	// Block, when set, is waited on before CreateOrder returns.
	Block   chan struct{}
	Entered chan struct{}
}

func (m *MockOrderStore) CreateOrder(_ context.Context, req domain.OrderRequest, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	m.Calls++
	m.Requests = append(m.Requests, req)
	m.OrderIDs = append(m.OrderIDs, orderID)
	m.mu.Unlock()

	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Block != nil {
		<-m.Block
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ReturnNil {
		return nil, nil
	}
	return &domain.Order{
		OrderID:  orderID,
		Customer: req.Customer,
		Shipping: req.Shipping,
		Items:    req.Items,
		Totals:   req.Totals,
		Status:   domain.OrderStatusProcessing,
	}, nil
}

func (m *MockOrderStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	Err      error
	Calls    int
	To       string
	OrderID  string
	Content  string
	CtxError error
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, to, orderID, html string) error {
	m.Calls++
	m.To, m.OrderID, m.Content = to, orderID, html
	m.CtxError = ctx.Err()
	return m.Err
}

// MockRenderer implements ConfirmationRenderer for testing
type MockRenderer struct {
	Err error
}

func (m *MockRenderer) RenderConfirmation(order *domain.Order) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return "<p>order " + order.OrderID + "</p>", nil
}

// MockCart implements CartStore for testing
type MockCart struct {
	mu      sync.Mutex
	Items   []domain.CartLine
	Cleared int
}

func (m *MockCart) Lines() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartLine(nil), m.Items...)
}

func (m *MockCart) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items = nil
	m.Cleared++
}

type userFacingError struct{ msg string }

func (e userFacingError) Error() string       { return "store rejected order: " + e.msg }
func (e userFacingError) UserMessage() string { return e.msg }
