package cart

import (
	"context"

	"storefront-cart/internal/domain"
)

// ItemsKey is the storage key the line items are persisted under.
const ItemsKey = "carritoItems"

// Repository persists the line items of one shopping session. Load returns
// an error wrapping domain.ErrCorruptState when stored data cannot be decoded.
type Repository interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, items []domain.LineItem) error
}
