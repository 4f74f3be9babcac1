package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CouponRepository reads coupons and records redemptions.
type CouponRepository struct {
	db DBTX
}

var _ domain.CouponStore = (*CouponRepository)(nil)

func NewCouponRepository(db DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

const fetchCouponSQL = `
SELECT id::text, code, discount_type, discount_value, min_order_amount,
       max_uses, current_uses, valid_from, valid_until, is_active
FROM coupons
WHERE lower(code) = lower($1)`

// FetchCoupon looks up a coupon by code, ignoring case.
func (r *CouponRepository) FetchCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	var (
		c            domain.Coupon
		discountType string
	)

	err := r.db.QueryRow(ctx, fetchCouponSQL, code).Scan(
		&c.ID,
		&c.Code,
		&discountType,
		&c.DiscountValue,
		&c.MinOrderAmount,
		&c.MaxUses,
		&c.CurrentUses,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound.WithOp("coupon.fetch")
		}
		return nil, domain.Internal(err, "coupon.fetch", "failed to fetch coupon")
	}
	c.DiscountType = domain.DiscountType(discountType)

	return &c, nil
}

// IncrementUsage bumps current_uses by one.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE coupons SET current_uses = current_uses + 1, updated_at = now() WHERE lower(code) = lower($1)`,
		code,
	)
	if err != nil {
		return domain.Internal(err, "coupon.increment_usage", "failed to record coupon usage")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCouponNotFound.WithOp("coupon.increment_usage")
	}
	return nil
}
