// Package catalog serves the read-only product list bundled with the binary.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

//go:embed products.json
var productsJSON []byte

var ErrProductNotFound = errors.New("product not found")

type Catalog struct {
	products []domain.Product
	bySlug   map[string]int
}

// Load builds the catalog from the embedded product list.
func Load() (*Catalog, error) {
	return Parse(productsJSON)
}

// Parse builds a catalog from a JSON array of products. Slugs must be unique.
func Parse(data []byte) (*Catalog, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{products: products, bySlug: make(map[string]int, len(products))}
	for i, p := range products {
		if p.Slug == "" {
			return nil, fmt.Errorf("product %d has no slug", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("product %s has no price", p.Slug)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		c.bySlug[p.Slug] = i
	}
	return c, nil
}

func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Featured returns up to limit products in catalog order.
func (c *Catalog) Featured(limit int) []domain.Product {
	if limit <= 0 || limit > len(c.products) {
		limit = len(c.products)
	}
	return c.List()[:limit]
}

func (c *Catalog) BySlug(slug string) (domain.Product, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}
