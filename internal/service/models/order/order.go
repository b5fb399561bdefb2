package order

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/rentora/rental-svc/internal/service/models/orderline"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusOnRent            Status = "on_rent"
	StatusReturnedAfterRent Status = "returned_after_rent"
	StatusCancelled         Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Terminal reports whether no further lifecycle transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusReturnedAfterRent || s == StatusCancelled
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case StatusOnRent.String():
		return StatusOnRent, nil
	case StatusReturnedAfterRent.String():
		return StatusReturnedAfterRent, nil
	case StatusCancelled.String():
		return StatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// PaymentStatus is an independent label, not driven by the state machine.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var ErrInvalidPaymentStatus = errors.New("invalid payment status")

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case PaymentPending.String():
		return PaymentPending, nil
	case PaymentPaid.String():
		return PaymentPaid, nil
	case PaymentFailed.String():
		return PaymentFailed, nil
	default:
		return "", ErrInvalidPaymentStatus
	}
}

// Order represents a customer rental order. The line roster is fixed at
// creation; lines only ever grow return events. TotalPriceCents is
// authoritative only once Status is returned_after_rent.
type Order struct {
	ID              int64            `json:"id"`
	CustomerName    string           `json:"customerName"`
	CustomerPhone   string           `json:"customerPhoneNumber"`
	RentingStart    time.Time        `json:"rentingStartDate"`
	RentingEnd      *time.Time       `json:"rentingEndDate,omitempty"`
	TotalPriceCents int64            `json:"totalPriceCents"`
	PaymentStatus   PaymentStatus    `json:"paymentStatus"`
	Status          Status           `json:"orderStatus"`
	IdempotencyKey  string           `json:"idempotencyKey,omitempty"`
	CreatedBy       int64            `json:"createdBy"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Lines           []orderline.Line `json:"products"`
}

// LinesForProduct returns the lines referencing productID in roster order.
// A product may appear on more than one line; lines are never merged.
func (o *Order) LinesForProduct(productID int64) []*orderline.Line {
	var lines []*orderline.Line
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			lines = append(lines, &o.Lines[i])
		}
	}
	return lines
}

// AllReturned reports whether every line's remaining quantity is zero.
func (o *Order) AllReturned() bool {
	for i := range o.Lines {
		if o.Lines[i].RemainingQuantity() > 0 {
			return false
		}
	}
	return true
}

// RemainingTotal sums remaining quantity across all lines.
func (o *Order) RemainingTotal() int64 {
	var total int64
	for i := range o.Lines {
		total += o.Lines[i].RemainingQuantity()
	}
	return total
}
