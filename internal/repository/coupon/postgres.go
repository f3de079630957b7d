package coupon

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront-cart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *PostgresRepo {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &PostgresRepo{pool: pool, logger: logger}
}

func (r *PostgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `
SELECT code, kind, value::float8
FROM coupons
WHERE code = $1 AND active
`
	var c domain.Coupon
	var kind string
	err := r.pool.QueryRow(ctx, q, domain.NormalizeCouponCode(code)).Scan(&c.Code, &kind, &c.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("coupon repo: get code=%s error=%v", code, err)
		return nil, err
	}
	c.Kind = domain.CouponKind(kind)
	return &c, nil
}

// Upsert stores c under its normalised code and marks it active.
func (r *PostgresRepo) Upsert(ctx context.Context, c domain.Coupon) error {
	const q = `
INSERT INTO coupons (code, kind, value, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (code) DO UPDATE
SET kind = EXCLUDED.kind,
    value = EXCLUDED.value,
    active = TRUE
`
	_, err := r.pool.Exec(ctx, q, domain.NormalizeCouponCode(c.Code), string(c.Kind), c.Value)
	return err
}
