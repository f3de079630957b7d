package domain

import "time"

// Product is a catalogue entry as the server-side cart merge sees it.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discountPrice,omitempty"`
	CategoryKey   string    `json:"categoryKey,omitempty"`
	CategoryName  string    `json:"categoryName,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Stock         int       `json:"stock"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EffectivePrice returns the discount price when one is set.
func (p Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 {
		return *p.DiscountPrice
	}
	return p.Price
}
