package customercart

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront-cart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UncategorisedName labels lines whose product has no category.
const UncategorisedName = "Sin categoría"

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

func (r *postgresRepo) AddQuantity(ctx context.Context, customerID, productID string, qty, max int) error {
	if qty < domain.MinQuantity || max < domain.MinQuantity {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	err = tx.QueryRow(ctx, `
SELECT quantity
FROM customer_cart_items
WHERE customer_id = $1 AND product_id = $2
FOR UPDATE
`, customerID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		next := min(existing+qty, max)
		if _, err := tx.Exec(ctx, `
UPDATE customer_cart_items
SET quantity = $1
WHERE customer_id = $2 AND product_id = $3
`, next, customerID, productID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
INSERT INTO customer_cart_items (customer_id, product_id, quantity)
VALUES ($1, $2, $3)
`, customerID, productID, min(qty, max)); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Printf("customer cart repo: add customer=%s product=%s error=%v", customerID, productID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, customerID string) ([]domain.LineItem, error) {
	const q = `
SELECT p.id,
       p.name,
       COALESCE(c.name, $2),
       COALESCE(NULLIF(p.discount_price, 0), p.price)::float8,
       COALESCE(NULLIF(p.image_url, ''), $3),
       ci.quantity
FROM customer_cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN categories c ON c.id = p.category_id
WHERE ci.customer_id = $1
ORDER BY ci.added_at ASC, p.id ASC
`
	rows, err := r.pool.Query(ctx, q, customerID, UncategorisedName, domain.DefaultImageURL)
	if err != nil {
		r.logger.Printf("customer cart repo: list customer=%s error=%v", customerID, err)
		return nil, err
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.UnitPrice, &it.ImageURL, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
