package ibill

import (
	"context"

	"github.com/rentora/rental-svc/internal/service/models/bill"
)

// IBillRepository is the bill store consumed by the rental service.
type IBillRepository interface {
	// Insert persists a generated bill and returns it with its id.
	Insert(ctx context.Context, b bill.Bill) (*bill.Bill, error)

	// GetByOrderID returns (nil, nil) when no bill exists for the order.
	GetByOrderID(ctx context.Context, orderID int64) (*bill.Bill, error)
}
