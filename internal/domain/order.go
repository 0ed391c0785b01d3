package domain

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

type Customer struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone" bson:"phone"`
}

type ShippingAddress struct {
	AddressLine1 string `json:"addressLine1" bson:"address_line1"`
	AddressLine2 string `json:"addressLine2,omitempty" bson:"address_line2,omitempty"`
	City         string `json:"city" bson:"city"`
	PostalCode   string `json:"postalCode" bson:"postal_code"`
	Country      string `json:"country" bson:"country"`
}

// OrderRequest is the payload assembled from a validated form and a filtered cart.
type OrderRequest struct {
	Customer Customer        `json:"customer"`
	Shipping ShippingAddress `json:"shipping"`
	Items    []CartLine      `json:"items"`
	Totals   Totals          `json:"totals"`
}

// Order is the durable record. It is written once and never updated.
type Order struct {
	OrderID   string          `json:"orderId" bson:"order_id"`
	Customer  Customer        `json:"customer" bson:"customer"`
	Shipping  ShippingAddress `json:"shipping" bson:"shipping"`
	Items     []CartLine      `json:"items" bson:"items"`
	Totals    Totals          `json:"totals" bson:"totals"`
	Status    OrderStatus     `json:"status" bson:"status"`
	CreatedAt time.Time       `json:"createdAt" bson:"created_at"`
}
