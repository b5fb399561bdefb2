package iorder

import (
	"context"

	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/models/orderline"
)

// IOrderRepository is the order store consumed by the rental service.
// Get methods return (nil, nil) when the order does not exist.
type IOrderRepository interface {
	// Insert persists an order together with its line roster and
	// returns the stored order with generated ids.
	Insert(ctx context.Context, o order.Order) (*order.Order, error)

	// GetByID loads an order with its lines and return events.
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// GetByIDForUpdate is GetByID with the order row locked for the
	// duration of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error)

	// GetByIdempotencyKey looks an order up by its creation key.
	GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error)

	// UpdateHeader persists order-level fields (customer info, dates,
	// statuses, total price). It never touches lines or returns.
	UpdateHeader(ctx context.Context, o *order.Order) error

	// InsertReturn appends a return event to a line.
	InsertReturn(ctx context.Context, ret orderline.Return) (*orderline.Return, error)

	// Query lists orders matching the filter and reports the total
	// number of matches for pagination.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, int64, error)
}
