// Package pricing holds the pure cart arithmetic: subtotal, coupon discount,
// payable total and coupon eligibility. Nothing here keeps state.
package pricing

import (
	"errors"
	"time"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary is the priced view of a cart consumed by the cart, drawer and checkout views.
type Summary struct {
	Lines          []domain.CartLine     `json:"lines"`
	Coupon         *domain.AppliedCoupon `json:"appliedCoupon"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	DiscountAmount decimal.Decimal       `json:"discountAmount"`
	Total          decimal.Decimal       `json:"total"`
	ItemCount      int                   `json:"itemCount"`
}

// Summarize prices a cart state.
func Summarize(state domain.CartState) Summary {
	subtotal := Subtotal(state.Lines)
	discount := DiscountAmount(state.AppliedCoupon, subtotal)

	lines := state.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}

	return Summary{
		Lines:          lines,
		Coupon:         state.AppliedCoupon,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          Total(subtotal, discount),
		ItemCount:      ItemCount(state.Lines),
	}
}

// Subtotal is the sum of unit price times quantity over all lines.
func Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// ItemCount is the sum of quantities over all lines.
func ItemCount(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// DiscountAmount returns the discount a coupon grants on subtotal.
// The result is always within [0, subtotal].
func DiscountAmount(coupon *domain.AppliedCoupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case domain.DiscountFixed:
		discount = coupon.DiscountValue
	case domain.DiscountPercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(hundred)
	default:
		return decimal.Zero
	}

	return clamp(discount, decimal.Zero, subtotal)
}

// Total is subtotal minus discount, floored at zero.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(subtotal.Sub(discount), decimal.Zero)
}

// CheckEligibility reports why coupon cannot be applied to a cart worth subtotal at now.
// The first failing rule wins; nil means the coupon is accepted.
func CheckEligibility(coupon domain.Coupon, subtotal decimal.Decimal, now time.Time) error {
	const op = "pricing.check_eligibility"

	if !coupon.IsActive {
		return domain.ErrCouponInactive.WithOp(op)
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return domain.ErrCouponNotStarted.WithOp(op)
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return domain.ErrCouponExpired.WithOp(op)
	}
	if coupon.MaxUses != nil && coupon.CurrentUses >= *coupon.MaxUses {
		return domain.ErrCouponExhausted.WithOp(op)
	}
	if subtotal.LessThan(coupon.MinOrderAmount) {
		return domain.Errorf(domain.EUNPROCESSABLE, op,
			"Minimum order amount of ₹%s required for this coupon", coupon.MinOrderAmount.StringFixed(2))
	}
	return nil
}

// RejectionReason maps a CheckEligibility or lookup error to a short label for metrics.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrCouponNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCouponInactive):
		return "inactive"
	case errors.Is(err, domain.ErrCouponNotStarted):
		return "not_started"
	case errors.Is(err, domain.ErrCouponExpired):
		return "expired"
	case errors.Is(err, domain.ErrCouponExhausted):
		return "exhausted"
	case domain.IsCode(err, domain.EUNPROCESSABLE):
		return "below_minimum"
	default:
		return "error"
	}
}

// ToMinorUnits converts rupees to paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
