package domain

import "strings"

type CouponKind string

const (
	CouponFreeShipping CouponKind = "envio_gratis"
	CouponPercentage   CouponKind = "porcentaje"
)

// Valid reports whether k is a known coupon kind.
func (k CouponKind) Valid() bool {
	return k == CouponFreeShipping || k == CouponPercentage
}

// Coupon is a promotional code. Value only matters for percentage coupons.
type Coupon struct {
	Code  string     `json:"codigo"`
	Kind  CouponKind `json:"tipo"`
	Value float64    `json:"valor"`
}

// NormalizeCouponCode trims and upper-cases a user supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
