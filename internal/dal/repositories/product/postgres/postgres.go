package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentora/rental-svc/internal/dal/postgres"
	"github.com/rentora/rental-svc/internal/service/models/apperrors"
	"github.com/rentora/rental-svc/internal/service/models/product"
)

type ProductRepository struct {
	conn postgres.Querier
}

func NewProductRepository(conn postgres.Querier) *ProductRepository {
	return &ProductRepository{
		conn: conn,
	}
}

// GetByID returns (nil, nil) when the product does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	err := r.conn.QueryRow(ctx, `
		SELECT id, name, description, category_id, category_name, per_day_price_cents,
			stock, created_by, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.CategoryName,
		&p.PerDayPriceCents,
		&p.Stock,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// ReserveStock is a conditional atomic decrement: it succeeds only when
// enough stock is available, so two concurrent reservations can never
// jointly oversell a product.
func (r *ProductRepository) ReserveStock(ctx context.Context, id, qty int64) (int64, error) {
	var newStock int64
	err := r.conn.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`, id, qty, time.Now()).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to reserve stock: %w", err)
	}

	// No row matched: either the product is unknown or stock is short.
	p, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if p == nil {
		return 0, apperrors.ProductNotFound(id)
	}

	return 0, apperrors.InsufficientStock(p.Name, p.Stock)
}

// ReleaseStock increments stock unconditionally. Returns are capped by
// rentedAmount upstream, so the counter cannot drift above what was
// reserved.
func (r *ProductRepository) ReleaseStock(ctx context.Context, id, qty int64) (int64, error) {
	var newStock int64
	err := r.conn.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = $3
		WHERE id = $1
		RETURNING stock
	`, id, qty, time.Now()).Scan(&newStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ProductNotFound(id)
		}
		return 0, fmt.Errorf("failed to release stock: %w", err)
	}

	return newStock, nil
}
