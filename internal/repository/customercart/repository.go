package customercart

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository is the server-side cart of an authenticated customer.
type Repository interface {
	// AddQuantity adds qty to the stored line for productID, never letting
	// the stored quantity exceed max.
	AddQuantity(ctx context.Context, customerID, productID string, qty, max int) error
	// List returns the customer's lines priced from the catalogue.
	List(ctx context.Context, customerID string) ([]domain.LineItem, error)
}
