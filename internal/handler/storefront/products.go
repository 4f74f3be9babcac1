package storefront

import (
	"net/http"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/handler"
)

// ProductHandler lists the catalog the cart can add from.
type ProductHandler struct {
	catalog domain.ProductCatalog
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog domain.ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListActiveProducts(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, domain.Internal(err, "product.list", "failed to list products"))
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	handler.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}
