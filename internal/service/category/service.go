package category

import (
	"context"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

// ListActive returns the categories shown on the storefront menu.
func (s *Service) ListActive(ctx context.Context) ([]domain.Category, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	return s.repo.Upsert(ctx, c)
}
