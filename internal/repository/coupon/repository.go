package coupon

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository looks coupons up by normalised code. Missing or inactive
// codes yield domain.ErrNotFound.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}
