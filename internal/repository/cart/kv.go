package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/kv"
)

type kvRepo struct {
	store kv.Store
}

// NewKV returns a Repository reading and writing ItemsKey in store.
func NewKV(store kv.Store) Repository {
	return &kvRepo{store: store}
}

func (r *kvRepo) Load(ctx context.Context) ([]domain.LineItem, error) {
	raw, err := r.store.Get(ctx, ItemsKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptState, ItemsKey, err)
	}
	return items, nil
}

func (r *kvRepo) Save(ctx context.Context, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, ItemsKey, raw)
}
