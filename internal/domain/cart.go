package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

var (
	ErrCartEmpty       = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 99"}
	ErrSessionNotFound = &Error{Code: ENOTFOUND, Message: "Session not found"}
)

// ProductSnapshot is the catalog data copied into a cart line when a product is added.
// Later catalog edits never reach lines that already exist.
type ProductSnapshot struct {
	ProductID      string           `json:"productId"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Image          string           `json:"image"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
}

// CartLine is one product in the cart with its add-time snapshot.
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unitPrice"`

	// CompareAtPrice is informational (strikethrough display) and never used in totals.
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`

	Quantity int `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine builds a line from a product snapshot.
func NewCartLine(p ProductSnapshot, quantity int) CartLine {
	return CartLine{
		ProductID:      p.ProductID,
		Name:           p.Name,
		Slug:           p.Slug,
		Image:          p.Image,
		UnitPrice:      p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Quantity:       quantity,
	}
}

// CartState is the persisted shape of a shopper's cart:
// {"lines": [...], "appliedCoupon": {...} | null}.
// Lines are unique by ProductID and kept in insertion order.
type CartState struct {
	Lines         []CartLine     `json:"lines"`
	AppliedCoupon *AppliedCoupon `json:"appliedCoupon"`
}

// Clone returns a deep copy so callers can read state without holding the engine lock.
func (s CartState) Clone() CartState {
	out := CartState{Lines: make([]CartLine, len(s.Lines))}
	copy(out.Lines, s.Lines)
	if s.AppliedCoupon != nil {
		c := *s.AppliedCoupon
		out.AppliedCoupon = &c
	}
	return out
}

// IndexOf returns the position of the line for productID, or -1.
func (s CartState) IndexOf(productID string) int {
	for i, l := range s.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
