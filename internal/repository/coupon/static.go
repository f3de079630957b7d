package coupon

import (
	"context"

	"storefront-cart/internal/domain"
)

// Builtin are the codes the storefront has always honoured.
var Builtin = []domain.Coupon{
	{Code: "PROMO10", Kind: domain.CouponPercentage, Value: 10},
	{Code: "ENVIOGRATIS", Kind: domain.CouponFreeShipping, Value: 0},
}

type staticRepo struct {
	byCode map[string]domain.Coupon
}

// NewStatic serves a fixed set of coupons from memory.
func NewStatic(coupons []domain.Coupon) Repository {
	m := make(map[string]domain.Coupon, len(coupons))
	for _, c := range coupons {
		m[domain.NormalizeCouponCode(c.Code)] = c
	}
	return &staticRepo{byCode: m}
}

func (r *staticRepo) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := r.byCode[domain.NormalizeCouponCode(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}
