package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/kv"
)

type kvRepo struct {
	store  kv.Store
	logger *log.Logger
}

// NewKV returns a Repository keeping the order list under OrdersKey.
func NewKV(store kv.Store, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &kvRepo{store: store, logger: logger}
}

// Append adds o to the end of the list. An unreadable list is replaced
// rather than blocking the new order.
func (r *kvRepo) Append(ctx context.Context, o domain.Order) error {
	orders, err := r.List(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptState) {
			return err
		}
		r.logger.Printf("order repo: resetting order list: %v", err)
		orders = nil
	}
	orders = append(orders, o)
	raw, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, OrdersKey, raw); err != nil {
		return err
	}
	r.logger.Printf("order repo: appended order_id=%s count=%d", o.ID, len(orders))
	return nil
}

func (r *kvRepo) List(ctx context.Context) ([]domain.Order, error) {
	raw, err := r.store.Get(ctx, OrdersKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptState, OrdersKey, err)
	}
	return orders, nil
}
