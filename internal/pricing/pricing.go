// Package pricing maps a cart's subtotal, shipping method and coupon to
// shipping cost, tax and grand total. Nothing here has side effects.
package pricing

import (
	"storefront-cart/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// TaxRate is the flat VAT applied to the subtotal.
	TaxRate = 0.16
	// ExpressMultiplier scales the tiered base cost for express shipping.
	ExpressMultiplier = 1.5
)

type tier struct {
	upTo float64
	cost float64
}

// Subtotals above the last tier ship for free.
var shippingTiers = []tier{
	{upTo: 500, cost: 80},
	{upTo: 1000, cost: 120},
	{upTo: 2000, cost: 150},
	{upTo: 5000, cost: 200},
}

// ShippingBaseCost returns the standard shipping cost for a subtotal.
func ShippingBaseCost(subtotal float64) float64 {
	for _, t := range shippingTiers {
		if subtotal <= t.upTo {
			return t.cost
		}
	}
	return 0
}

// ShippingCost applies the method multiplier to the tiered base cost. A free
// shipping coupon forces the result to zero after the multiplier is applied.
func ShippingCost(subtotal float64, method domain.ShippingMethod, coupon *domain.Coupon) float64 {
	cost := ShippingBaseCost(subtotal)
	if method == domain.ShippingExpress {
		cost *= ExpressMultiplier
	}
	if coupon != nil && coupon.Kind == domain.CouponFreeShipping {
		return 0
	}
	return cost
}

// Tax returns the VAT owed on subtotal.
func Tax(subtotal float64) float64 {
	return subtotal * TaxRate
}

// Total sums the three components of the grand total.
func Total(subtotal, tax, shippingCost float64) float64 {
	return subtotal + tax + shippingCost
}

// Subtotal sums price times quantity over items.
func Subtotal(items []domain.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}

// PercentageDiscount is the amount a percentage coupon advertises on
// subtotal, never more than subtotal itself. It is zero for any other coupon.
func PercentageDiscount(subtotal float64, coupon *domain.Coupon) float64 {
	if coupon == nil || coupon.Kind != domain.CouponPercentage || coupon.Value <= 0 {
		return 0
	}
	return subtotal * min(coupon.Value, 100) / 100
}

// Policy carries the one pricing behaviour that is configurable.
type Policy struct {
	// ApplyPercentageDiscount subtracts percentage coupons from the total.
	// When false the discount is only reported, which is how the storefront
	// has always behaved.
	ApplyPercentageDiscount bool
}

// Quote is the full set of derived monetary values for a cart.
type Quote struct {
	Subtotal     float64
	Tax          float64
	ShippingCost float64
	Discount     float64
	Total        float64
}

// Quote prices items for the given method and coupon.
func (p Policy) Quote(items []domain.LineItem, method domain.ShippingMethod, coupon *domain.Coupon) Quote {
	subtotal := Subtotal(items)
	tax := Tax(subtotal)
	shipping := ShippingCost(subtotal, method, coupon)
	discount := PercentageDiscount(subtotal, coupon)
	total := Total(subtotal, tax, shipping)
	if p.ApplyPercentageDiscount {
		total -= discount
	}
	return Quote{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        total,
	}
}

// Round rounds v half away from zero to two decimal places. Use it only
// when presenting a value.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Format renders v with exactly two decimals and a leading dollar sign.
func Format(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}
