package domain

// CartLine is one product in a cart. Prices are integer minor units (cents).
type CartLine struct {
	ID             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	UnitPriceMinor int64  `json:"price" bson:"price"`
	Quantity       int    `json:"quantity" bson:"quantity"`
	Slug           string `json:"slug,omitempty" bson:"slug,omitempty"`
	ImageRef       string `json:"image,omitempty" bson:"image,omitempty"`
}

func (l CartLine) LineTotalMinor() int64 {
	return l.UnitPriceMinor * int64(l.Quantity)
}

// IsOrderable reports whether the line may be sent to the order store.
func (l CartLine) IsOrderable() bool {
	return l.ID != "" && l.Name != "" && l.UnitPriceMinor > 0 && l.Quantity > 0
}

type Totals struct {
	SubtotalMinor int64 `json:"subtotal" bson:"subtotal"`
	ShippingMinor int64 `json:"shipping" bson:"shipping"`
	TaxesMinor    int64 `json:"taxes" bson:"taxes"`
	TotalMinor    int64 `json:"total" bson:"total"`
}
