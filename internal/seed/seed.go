package seed

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront-cart/internal/domain"
	categoryrepo "storefront-cart/internal/repository/category"
	couponrepo "storefront-cart/internal/repository/coupon"
	productrepo "storefront-cart/internal/repository/product"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	ID          string
	CategoryKey string
	Name        string
	Description string
	Price       float64
	Discount    float64
	Stock       int
}

var categories = []domain.Category{
	{Key: "monturas", Name: "Monturas", Active: true},
	{Key: "cintos", Name: "Cintos", Active: true},
	{Key: "botas", Name: "Botas", Active: true},
	{Key: "accesorios", Name: "Accesorios", Active: true},
}

var products = []productSeed{
	{ID: "1", CategoryKey: "monturas", Name: "Montura charra", Description: "Montura de cuero curtido al vegetal", Price: 8500, Stock: 4},
	{ID: "2", CategoryKey: "cintos", Name: "Cinto piteado", Description: "Bordado a mano con pita", Price: 1250, Discount: 999, Stock: 30},
	{ID: "3", CategoryKey: "botas", Name: "Bota vaquera", Description: "Piel de res, suela de cuero", Price: 2890, Stock: 12},
	{ID: "4", CategoryKey: "accesorios", Name: "Llavero de piel", Price: 80, Stock: 200},
	{ID: "5", CategoryKey: "accesorios", Name: "Cartera grabada", Price: 450, Discount: 399, Stock: 0},
}

// Apply inserts the demo catalogue and the built-in coupons. It is
// idempotent: every write is an upsert.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cats := categoryrepo.NewPostgres(pool)
	for _, c := range categories {
		if _, err := cats.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Key, err)
		}
	}

	prods := productrepo.NewPostgres(pool, logger)
	for _, p := range products {
		if _, err := prods.Upsert(ctx, p.toDomain()); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}

	coupons := couponrepo.NewPostgres(pool, logger)
	for _, c := range couponrepo.Builtin {
		if err := coupons.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert coupon %s: %w", c.Code, err)
		}
	}

	logger.Printf("seeded categories=%d products=%d coupons=%d", len(categories), len(products), len(couponrepo.Builtin))
	return nil
}

func (p productSeed) toDomain() domain.Product {
	out := domain.Product{
		ID:          p.ID,
		CategoryKey: p.CategoryKey,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Active:      true,
	}
	if p.Discount > 0 {
		d := p.Discount
		out.DiscountPrice = &d
	}
	return out
}
