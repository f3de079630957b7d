package product

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront-cart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT p.id, p.name, COALESCE(p.description, ''), p.price::float8, p.discount_price::float8,
       COALESCE(c.key, ''), COALESCE(c.name, ''), COALESCE(p.image_url, ''), p.stock, p.active, p.created_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.CategoryKey,
		&p.CategoryName,
		&p.ImageURL,
		&p.Stock,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, category_id, name, description, price, discount_price, image_url, stock, active)
VALUES ($1, (SELECT id FROM categories WHERE key = NULLIF($2, '')), $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9)
ON CONFLICT (id) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    discount_price = EXCLUDED.discount_price,
    image_url = EXCLUDED.image_url,
    stock = EXCLUDED.stock,
    active = EXCLUDED.active
RETURNING created_at
`
	res := p
	err := r.pool.QueryRow(ctx, q,
		p.ID,
		p.CategoryKey,
		p.Name,
		p.Description,
		p.Price,
		p.DiscountPrice,
		p.ImageURL,
		p.Stock,
		p.Active,
	).Scan(&res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert id=%s error=%v", p.ID, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted id=%s", p.ID)
	return &res, nil
}
