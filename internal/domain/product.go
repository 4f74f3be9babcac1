package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}

// Product is a catalog item as read from the external store.
type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Category       string           `json:"category"`
	ImageURL       string           `json:"image"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
	IsActive       bool             `json:"isActive"`
}

// Snapshot copies the fields a cart line keeps.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:      p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Image:          p.ImageURL,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
	}
}

// ProductCatalog reads products from the external store.
type ProductCatalog interface {
	// GetProduct returns ErrProductNotFound when id is unknown.
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListActiveProducts(ctx context.Context) ([]Product, error)
}
