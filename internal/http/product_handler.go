package http

import (
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductCatalog interface {
	List() []domain.Product
	BySlug(slug string) (domain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
}

func NewProductHandler(c ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: c}
}

type ProductResponse struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	New         bool   `json:"new"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"price"`
	ImageURL    string `json:"image"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.CartID(),
		Slug:        p.Slug,
		Name:        p.Name,
		Category:    p.Category,
		New:         p.New,
		Description: p.Description,
		PriceMinor:  p.PriceMinor(),
		ImageURL:    p.ImageURL,
	}
}

// GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.catalog.List()
	products := make([]ProductResponse, len(list))
	for i, p := range list {
		products[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /products/{slug}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.BySlug(chi.URLParam(r, "slug"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	if err != nil {
		respondServerError(w)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}
