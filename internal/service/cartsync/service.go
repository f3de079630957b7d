// Package cartsync merges a browser cart into a customer's server-side cart.
package cartsync

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/repository/customercart"
)

// ProductLookup returns active catalogue products; missing or inactive ones
// yield domain.ErrNotFound.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	products ProductLookup
	carts    customercart.Repository
	logger   *log.Logger
}

func New(products ProductLookup, carts customercart.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{products: products, carts: carts, logger: logger}
}

// SyncCart adds every incoming quantity to the stored cart of customerID and
// returns the merged cart priced from the catalogue. A missing quantity
// counts as one and unknown products are skipped. No stored quantity exceeds
// MaxQuantity or the product's stock.
func (s *Service) SyncCart(ctx context.Context, customerID string, items []domain.LineItem) ([]domain.LineItem, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	for _, it := range items {
		p, err := s.products.Get(ctx, it.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Printf("cartsync: customer=%s skip product=%s not available", customerID, it.ID)
				continue
			}
			return nil, err
		}
		// A request beyond stock is capped to the stock on hand, not rejected.
		limit := min(domain.MaxQuantity, p.Stock)
		if limit < domain.MinQuantity {
			s.logger.Printf("cartsync: customer=%s skip product=%s out of stock", customerID, it.ID)
			continue
		}
		if err := s.carts.AddQuantity(ctx, customerID, p.ID, max(it.Quantity, domain.MinQuantity), limit); err != nil {
			return nil, err
		}
	}
	return s.carts.List(ctx, customerID)
}
