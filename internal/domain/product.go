package domain

import "strconv"

// Product is a catalog entry. Price is in whole currency units, as the
// catalog data is authored; carts and orders use PriceMinor.
type Product struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	New         bool   `json:"new"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image"`
}

// CartID is the id a cart line uses for this product.
func (p Product) CartID() string {
	return "prod_" + strconv.FormatInt(p.ID, 10)
}

func (p Product) PriceMinor() int64 {
	return p.Price * 100
}
