package reconciler

import (
	"time"

	"github.com/rentora/rental-svc/internal/service/models/apperrors"
	"github.com/rentora/rental-svc/internal/service/models/orderline"
)

// ValidateReturn checks a requested return against a line. The quantity
// must be positive and must not exceed the line's remaining quantity,
// and the return date must not precede the rental start.
func ValidateReturn(line *orderline.Line, qty int64, returnedDate, rentingStart time.Time) error {
	if qty <= 0 {
		return apperrors.InvalidQuantity("returnedQuantity", "returned quantity must be positive")
	}
	if returnedDate.Before(rentingStart) {
		return apperrors.InvalidReturnDate("returned date is before the rental start date")
	}
	if remaining := line.RemainingQuantity(); qty > remaining {
		return apperrors.OverReturn(remaining)
	}
	return nil
}

// CommitReturn appends a return event to the line. Validation must have
// passed first; the caller is responsible for releasing stock and
// persisting both mutations in the same transaction.
func CommitReturn(line *orderline.Line, qty int64, returnedDate time.Time) orderline.Return {
	event := orderline.Return{
		LineID:           line.ID,
		ReturnedQuantity: qty,
		ReturnedDate:     returnedDate,
		CreatedAt:        time.Now(),
	}
	line.Returns = append(line.Returns, event)
	return event
}
