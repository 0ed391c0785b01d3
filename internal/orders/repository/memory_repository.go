package repository

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

// MemoryRepository keeps orders in process memory. Used for local runs and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]domain.Order)}
}

func (m *MemoryRepository) RunMigrations(_ *Credentials) error {
	return nil
}

func (m *MemoryRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.OrderID]; exists {
		return ErrDuplicateOrder
	}
	m.orders[order.OrderID] = cloneOrder(*order)
	return nil
}

func (m *MemoryRepository) GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MemoryRepository) Close() error {
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.CartLine(nil), o.Items...)
	return o
}
