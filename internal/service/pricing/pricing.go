package pricing

import (
	"time"

	"github.com/rentora/rental-svc/internal/service/models/orderline"
)

const day = 24 * time.Hour

// RentalDays counts chargeable days between start and end, rounding any
// started day up. The minimum charge is always one day: a same-day
// return still pays for a full day, and an end before start clamps to
// one day rather than producing a negative charge.
func RentalDays(start, end time.Time) int64 {
	diff := end.Sub(start)
	days := int64(diff / day)
	if diff%day > 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// LineCost sums the cost contribution of every return event on the line:
// days from the order's rental start to the event's return date, times
// the line's per-day price snapshot, times the returned quantity.
func LineCost(rentingStart time.Time, line *orderline.Line) int64 {
	var cost int64
	for _, r := range line.Returns {
		cost += RentalDays(rentingStart, r.ReturnedDate) * line.PerDayPriceCents * r.ReturnedQuantity
	}
	return cost
}

// OrderCost sums LineCost across all lines. Callers invoke it only once
// every line's remaining quantity is zero; partial sums are meaningless
// as an order total.
func OrderCost(rentingStart time.Time, lines []orderline.Line) int64 {
	var cost int64
	for i := range lines {
		cost += LineCost(rentingStart, &lines[i])
	}
	return cost
}
