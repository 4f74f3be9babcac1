package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's DiscountValue is interpreted.
type DiscountType string

const (
	// DiscountPercentage takes DiscountValue percent off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes DiscountValue rupees off, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	ErrCouponNotFound    = &Error{Code: EUNPROCESSABLE, Message: "Invalid coupon code"}
	ErrCouponInactive    = &Error{Code: EUNPROCESSABLE, Message: "This coupon is no longer active"}
	ErrCouponNotStarted  = &Error{Code: EUNPROCESSABLE, Message: "This coupon is not valid yet"}
	ErrCouponExpired     = &Error{Code: EUNPROCESSABLE, Message: "This coupon has expired"}
	ErrCouponExhausted   = &Error{Code: EUNPROCESSABLE, Message: "This coupon has reached its usage limit"}
	ErrCouponCodeMissing = &Error{Code: EINVALID, Message: "Please enter a coupon code"}
)

// Coupon is a discount rule owned by the external store.
type Coupon struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DiscountType   DiscountType    `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`

	// MaxUses is nil when the coupon has no usage cap.
	MaxUses     *int `json:"maxUses,omitempty"`
	CurrentUses int  `json:"currentUses"`

	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	IsActive   bool       `json:"isActive"`
}

// Applied returns the snapshot stored on the cart once the coupon is accepted.
func (c Coupon) Applied() AppliedCoupon {
	return AppliedCoupon{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
	}
}

// AppliedCoupon is the coupon snapshot held by a cart. At most one per cart.
type AppliedCoupon struct {
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// CouponStore is the external store's coupon lookup.
type CouponStore interface {
	// FetchCoupon looks up a coupon by code, ignoring case.
	// Returns ErrCouponNotFound when nothing matches.
	FetchCoupon(ctx context.Context, code string) (*Coupon, error)

	// IncrementUsage records one redemption. Called when an order is finalized.
	IncrementUsage(ctx context.Context, code string) error
}
