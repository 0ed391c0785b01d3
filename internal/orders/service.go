package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/internal/orders/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrMissingOrderID = errors.New("order id is required")

// Service builds order documents and reads them back. Reads always go to
// the repository so status changes made elsewhere are visible.
type Service struct {
	repo repository.OrderRepository
	now  func() time.Time
}

func NewService(repo repository.OrderRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateOrder stores a new order in the processing state under orderID.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderRequest, orderID string) (*domain.Order, error) {
	ctx, span := observability.Tracer().Start(ctx, "orders.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int("order.items", len(req.Items)))

	if strings.TrimSpace(orderID) == "" {
		return nil, ErrMissingOrderID
	}

	order := &domain.Order{
		OrderID:   orderID,
		Customer:  req.Customer,
		Shipping:  req.Shipping,
		Items:     append([]domain.CartLine(nil), req.Items...),
		Totals:    req.Totals,
		Status:    domain.OrderStatusProcessing,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		return nil, fmt.Errorf("create order %s: %w", orderID, err)
	}

	observability.OrdersCreated.Inc()
	return order, nil
}

// GetOrder returns found=false, not an error, when no order has orderID.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, bool, error) {
	ctx, span := observability.Tracer().Start(ctx, "orders.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if strings.TrimSpace(orderID) == "" {
		return nil, false, ErrMissingOrderID
	}

	order, err := s.repo.GetOrderByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get order failed")
		return nil, false, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, true, nil
}
