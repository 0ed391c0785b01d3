package repository

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this id already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OrderRepository persists orders. CreateOrder must be atomic: the order is
// either fully stored or not at all.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	RunMigrations(*Credentials) error
	Close() error
}
