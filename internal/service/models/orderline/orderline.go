package orderline

import (
	"time"
)

// Return is one partial-return event on a line. Events are append-only.
type Return struct {
	ID               int64     `json:"id"`
	LineID           int64     `json:"lineId"`
	ReturnedQuantity int64     `json:"returnedQuantity"`
	ReturnedDate     time.Time `json:"returnedDate"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Line is one product's commitment within an order. ProductName,
// CategoryID, CategoryName and PerDayPriceCents are snapshots taken at
// order creation and never refreshed; RentedAmount is fixed at creation.
type Line struct {
	ID               int64    `json:"id"`
	OrderID          int64    `json:"orderId"`
	ProductID        int64    `json:"productId"`
	ProductName      string   `json:"productName"`
	CategoryID       int64    `json:"categoryId"`
	CategoryName     string   `json:"categoryName"`
	RentedAmount     int64    `json:"rentedAmount"`
	PerDayPriceCents int64    `json:"perDayPriceCents"`
	Returns          []Return `json:"returns"`
}

// ReturnedQuantity sums the quantities across all return events.
func (l *Line) ReturnedQuantity() int64 {
	var sum int64
	for _, r := range l.Returns {
		sum += r.ReturnedQuantity
	}
	return sum
}

// RemainingQuantity is the portion of RentedAmount still out on rent.
func (l *Line) RemainingQuantity() int64 {
	return l.RentedAmount - l.ReturnedQuantity()
}
