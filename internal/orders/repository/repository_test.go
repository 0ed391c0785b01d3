package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *domain.Order {
	return &domain.Order{
		OrderID: uuid.NewString(),
		Customer: domain.Customer{
			Name:  "Jane Wanjiku",
			Email: "jane@example.com",
			Phone: "+254712345678",
		},
		Shipping: domain.ShippingAddress{
			AddressLine1: "12 Kenyatta Avenue",
			City:         "Nairobi",
			PostalCode:   "00100",
			Country:      "Kenya",
		},
		Items: []domain.CartLine{
			{ID: "prod_001", Name: "XX99 Mark II", UnitPriceMinor: 450000, Quantity: 1, Slug: "xx99-mark-two-headphones"},
			{ID: "prod_002", Name: "YX1 Earphones", UnitPriceMinor: 15000, Quantity: 2},
		},
		Totals:    domain.Totals{SubtotalMinor: 480000, ShippingMinor: 2000, TaxesMinor: 76800, TotalMinor: 558800},
		Status:    domain.OrderStatusProcessing,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// testRepositoryContract runs the behaviour every backend must share.
func testRepositoryContract(t *testing.T, repo OrderRepository) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		order := newTestOrder()
		require.NoError(t, repo.CreateOrder(ctx, order))

		fetched, err := repo.GetOrderByOrderID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderID, fetched.OrderID)
		assert.Equal(t, order.Customer, fetched.Customer)
		assert.Equal(t, order.Shipping, fetched.Shipping)
		assert.Equal(t, order.Items, fetched.Items)
		assert.Equal(t, order.Totals, fetched.Totals)
		assert.Equal(t, domain.OrderStatusProcessing, fetched.Status)
		assert.WithinDuration(t, order.CreatedAt, fetched.CreatedAt, time.Millisecond)
	})

	t.Run("not found", func(t *testing.T) {
		order, err := repo.GetOrderByOrderID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.Nil(t, order)
	})

	t.Run("duplicate order id", func(t *testing.T) {
		order := newTestOrder()
		require.NoError(t, repo.CreateOrder(ctx, order))

		again := newTestOrder()
		again.OrderID = order.OrderID
		again.Customer.Name = "Someone Else"
		assert.ErrorIs(t, repo.CreateOrder(ctx, again), ErrDuplicateOrder)

		fetched, err := repo.GetOrderByOrderID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Wanjiku", fetched.Customer.Name)
	})

	t.Run("optional address line round trips", func(t *testing.T) {
		order := newTestOrder()
		order.Shipping.AddressLine2 = "Apartment 4B"
		require.NoError(t, repo.CreateOrder(ctx, order))

		fetched, err := repo.GetOrderByOrderID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, "Apartment 4B", fetched.Shipping.AddressLine2)
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepositoryContract(t, NewMemoryRepository())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	order := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	order.Items[0].Quantity = 50
	fetched, err := repo.GetOrderByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	fetched.Items[1].Quantity = 60

	again, err := repo.GetOrderByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
	assert.Equal(t, 2, again.Items[1].Quantity)
}

func TestMemoryRepository_ConcurrentCreateSameID(t *testing.T) {
	repo := NewMemoryRepository()
	order := newTestOrder()

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.CreateOrder(context.Background(), order)
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateOrder)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.CreateOrder(ctx, newTestOrder()), context.Canceled)
}
