package repository

import (
	"encoding/json"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

// orderRow is the column layout shared by the SQL backends. Nested values
// are stored as JSON documents.
type orderRow struct {
	OrderID  string
	Customer []byte
	Shipping []byte
	Items    []byte
	Totals   []byte
	Status   string
}

func encodeOrder(order *domain.Order) (*orderRow, error) {
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer: %w", err)
	}
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping: %w", err)
	}
	items := order.Items
	if items == nil {
		items = []domain.CartLine{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	totals, err := json.Marshal(order.Totals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal totals: %w", err)
	}
	return &orderRow{
		OrderID:  order.OrderID,
		Customer: customer,
		Shipping: shipping,
		Items:    itemsJSON,
		Totals:   totals,
		Status:   string(order.Status),
	}, nil
}

func (r *orderRow) decode(order *domain.Order) error {
	order.OrderID = r.OrderID
	order.Status = domain.OrderStatus(r.Status)
	if err := json.Unmarshal(r.Customer, &order.Customer); err != nil {
		return fmt.Errorf("unmarshal customer: %w", err)
	}
	if err := json.Unmarshal(r.Shipping, &order.Shipping); err != nil {
		return fmt.Errorf("unmarshal shipping: %w", err)
	}
	if err := json.Unmarshal(r.Items, &order.Items); err != nil {
		return fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(r.Totals, &order.Totals); err != nil {
		return fmt.Errorf("unmarshal totals: %w", err)
	}
	return nil
}
