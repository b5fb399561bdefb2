package bill

import (
	"time"

	"github.com/rentora/rental-svc/internal/service/models/order"
)

// Bill is the billing record generated from a completed rental order.
// It snapshots the order at generation time.
type Bill struct {
	ID              int64               `json:"id"`
	OrderID         int64               `json:"orderId"`
	BillNumber      string              `json:"billNumber"`
	CustomerName    string              `json:"customerName"`
	CustomerPhone   string              `json:"customerPhoneNumber"`
	RentingStart    time.Time           `json:"rentingStartDate"`
	RentingEnd      time.Time           `json:"rentingEndDate"`
	RentedDays      int64               `json:"rentedDays"`
	TotalPriceCents int64               `json:"totalPriceCents"`
	PaymentStatus   order.PaymentStatus `json:"paymentStatus"`
	GeneratedBy     int64               `json:"generatedBy"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}
