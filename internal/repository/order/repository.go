package order

import (
	"context"

	"storefront-cart/internal/domain"
)

// OrdersKey is the storage key the order list is persisted under.
const OrdersKey = "pedidos"

// Repository is an append-only list of orders for one shopping session.
type Repository interface {
	Append(ctx context.Context, o domain.Order) error
	List(ctx context.Context) ([]domain.Order, error)
}
