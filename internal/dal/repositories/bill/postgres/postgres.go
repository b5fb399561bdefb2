package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/rentora/rental-svc/internal/dal/postgres"
	"github.com/rentora/rental-svc/internal/service/models/bill"
	"github.com/rentora/rental-svc/internal/service/models/order"
)

type BillRepository struct {
	conn postgres.Querier
}

func NewBillRepository(conn postgres.Querier) *BillRepository {
	return &BillRepository{
		conn: conn,
	}
}

// Insert persists a generated bill and returns it with its id.
func (r *BillRepository) Insert(ctx context.Context, b bill.Bill) (*bill.Bill, error) {
	query, args, err := sq.Insert("bills").
		Columns(
			"order_id",
			"bill_number",
			"customer_name",
			"customer_phone",
			"renting_start_date",
			"renting_end_date",
			"rented_days",
			"total_price_cents",
			"payment_status",
			"generated_by",
			"generated_at",
		).
		Values(
			b.OrderID,
			b.BillNumber,
			b.CustomerName,
			b.CustomerPhone,
			b.RentingStart,
			b.RentingEnd,
			b.RentedDays,
			b.TotalPriceCents,
			b.PaymentStatus,
			b.GeneratedBy,
			b.GeneratedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert bill query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
		return nil, fmt.Errorf("failed to insert bill: %w", err)
	}

	return &b, nil
}

// GetByOrderID returns (nil, nil) when no bill exists for the order.
func (r *BillRepository) GetByOrderID(ctx context.Context, orderID int64) (*bill.Bill, error) {
	var b bill.Bill
	var paymentStatus string
	err := r.conn.QueryRow(ctx, `
		SELECT id, order_id, bill_number, customer_name, customer_phone,
			renting_start_date, renting_end_date, rented_days, total_price_cents,
			payment_status, generated_by, generated_at
		FROM bills
		WHERE order_id = $1
	`, orderID).Scan(
		&b.ID,
		&b.OrderID,
		&b.BillNumber,
		&b.CustomerName,
		&b.CustomerPhone,
		&b.RentingStart,
		&b.RentingEnd,
		&b.RentedDays,
		&b.TotalPriceCents,
		&paymentStatus,
		&b.GeneratedBy,
		&b.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	payment, err := order.ParsePaymentStatus(paymentStatus)
	if err != nil {
		return nil, err
	}
	b.PaymentStatus = payment

	return &b, nil
}
