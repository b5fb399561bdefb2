package iproduct

import (
	"context"

	"github.com/rentora/rental-svc/internal/service/models/product"
)

// IProductRepository is the product store consumed by the rental
// service. Stock mutations are conditional atomic updates so two
// concurrent reservations can never jointly oversell a product.
type IProductRepository interface {
	// GetByID returns (nil, nil) when the product does not exist.
	GetByID(ctx context.Context, id int64) (*product.Product, error)

	// ReserveStock decrements stock by qty only if enough is available,
	// returning the new stock level. Fails with InsufficientStock
	// otherwise and with ProductNotFound for an unknown id.
	ReserveStock(ctx context.Context, id, qty int64) (int64, error)

	// ReleaseStock increments stock by qty unconditionally and returns
	// the new stock level.
	ReleaseStock(ctx context.Context, id, qty int64) (int64, error)
}
