// Package coupon verifies coupon codes against the storefront catalogue.
package coupon

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront-cart/internal/domain"
	couponrepo "storefront-cart/internal/repository/coupon"
)

var (
	ErrCodeRequired = errors.New("coupon code required")
	ErrInvalid      = errors.New("invalid coupon")
)

// Service looks a code up in each repository in turn. A repository failure
// other than not-found is logged and the next repository is tried.
type Service struct {
	repos  []couponrepo.Repository
	logger *log.Logger
}

func New(logger *log.Logger, repos ...couponrepo.Repository) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repos: repos, logger: logger}
}

func (s *Service) VerifyCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return domain.Coupon{}, ErrCodeRequired
	}
	for _, repo := range s.repos {
		c, err := repo.GetByCode(ctx, code)
		if err == nil {
			if !c.Kind.Valid() {
				s.logger.Printf("coupon: code=%s has unknown kind %q", code, c.Kind)
				return domain.Coupon{}, ErrInvalid
			}
			return *c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("coupon: lookup code=%s error=%v", code, err)
		}
	}
	return domain.Coupon{}, ErrInvalid
}
