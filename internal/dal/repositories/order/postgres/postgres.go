package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rentora/rental-svc/internal/dal/postgres"
	"github.com/rentora/rental-svc/internal/service/models/apperrors"
	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/models/orderline"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id              int64      `db:"id"`
	CustomerName    string     `db:"customer_name"`
	CustomerPhone   string     `db:"customer_phone"`
	RentingStart    time.Time  `db:"renting_start_date"`
	RentingEnd      *time.Time `db:"renting_end_date"`
	TotalPriceCents int64      `db:"total_price_cents"`
	PaymentStatus   string     `db:"payment_status"`
	OrderStatus     string     `db:"order_status"`
	IdempotencyKey  string     `db:"idempotency_key"`
	CreatedBy       int64      `db:"created_by"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.OrderStatus)
	if err != nil {
		return nil, err
	}
	payment, err := order.ParsePaymentStatus(o.PaymentStatus)
	if err != nil {
		return nil, err
	}
	return &order.Order{
		ID:              o.Id,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		RentingStart:    o.RentingStart,
		RentingEnd:      o.RentingEnd,
		TotalPriceCents: o.TotalPriceCents,
		PaymentStatus:   payment,
		Status:          status,
		IdempotencyKey:  o.IdempotencyKey,
		CreatedBy:       o.CreatedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Lines:           []orderline.Line{},
	}, nil
}

type OrderRepository struct {
	conn postgres.Querier
}

func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

const orderColumns = `id, customer_name, customer_phone, renting_start_date, renting_end_date,
	total_price_cents, payment_status, order_status, idempotency_key, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.Id,
		&dal.CustomerName,
		&dal.CustomerPhone,
		&dal.RentingStart,
		&dal.RentingEnd,
		&dal.TotalPriceCents,
		&dal.PaymentStatus,
		&dal.OrderStatus,
		&dal.IdempotencyKey,
		&dal.CreatedBy,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return dal.ToModel()
}

// Insert persists the order and its lines, returning the stored order
// with generated ids.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (*order.Order, error) {
	query, args, err := sq.Insert("orders").
		Columns(
			"customer_name",
			"customer_phone",
			"renting_start_date",
			"renting_end_date",
			"total_price_cents",
			"payment_status",
			"order_status",
			"idempotency_key",
			"created_by",
			"created_at",
			"updated_at",
		).
		Values(
			o.CustomerName,
			o.CustomerPhone,
			o.RentingStart,
			o.RentingEnd,
			o.TotalPriceCents,
			o.PaymentStatus,
			o.Status,
			o.IdempotencyKey,
			o.CreatedBy,
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert order query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&o.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, apperrors.DuplicateRequest(o.IdempotencyKey)
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID

		query, args, err := sq.Insert("order_lines").
			Columns(
				"order_id",
				"product_id",
				"product_name",
				"category_id",
				"category_name",
				"rented_amount",
				"per_day_price_cents",
			).
			Values(
				line.OrderID,
				line.ProductID,
				line.ProductName,
				line.CategoryID,
				line.CategoryName,
				line.RentedAmount,
				line.PerDayPriceCents,
			).
			Suffix("RETURNING id").
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert line query: %w", err)
		}

		if err := r.conn.QueryRow(ctx, query, args...).Scan(&line.ID); err != nil {
			return nil, fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return &o, nil
}

// GetByID loads an order with its lines and return events.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate locks the order row for the enclosing transaction, so
// concurrent lifecycle calls on the same order are serialized.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.getByID(ctx, id, true)
}

func (r *OrderRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*order.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}

	model, err := scanOrder(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadLines(ctx, []*order.Order{model}); err != nil {
		return nil, err
	}

	return model, nil
}

// GetByIdempotencyKey looks an order up by its creation key.
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE idempotency_key = $1", orderColumns)

	model, err := scanOrder(r.conn.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order by idempotency key: %w", err)
	}

	if err := r.loadLines(ctx, []*order.Order{model}); err != nil {
		return nil, err
	}

	return model, nil
}

// UpdateHeader persists order-level fields. Lines and returns are never
// written here.
func (r *OrderRepository) UpdateHeader(ctx context.Context, o *order.Order) error {
	query, args, err := sq.Update("orders").
		Set("customer_name", o.CustomerName).
		Set("customer_phone", o.CustomerPhone).
		Set("renting_start_date", o.RentingStart).
		Set("renting_end_date", o.RentingEnd).
		Set("total_price_cents", o.TotalPriceCents).
		Set("payment_status", o.PaymentStatus).
		Set("order_status", o.Status).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update order query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

// InsertReturn appends a return event to a line.
func (r *OrderRepository) InsertReturn(ctx context.Context, ret orderline.Return) (*orderline.Return, error) {
	query, args, err := sq.Insert("line_returns").
		Columns("line_id", "returned_quantity", "returned_date", "created_at").
		Values(ret.LineID, ret.ReturnedQuantity, ret.ReturnedDate, ret.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert return query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&ret.ID); err != nil {
		return nil, fmt.Errorf("failed to insert return: %w", err)
	}

	return &ret, nil
}

// Query lists orders matching the filter with the total match count.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, int64, error) {
	base := sq.Select().From("orders").PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		base = base.Where(sq.Eq{"id": filter.Ids})
	}
	if filter.Status != "" {
		base = base.Where(sq.Eq{"order_status": filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		base = base.Where(sq.Or{
			sq.ILike{"customer_name": pattern},
			sq.ILike{"customer_phone": pattern},
			sq.Expr(
				`EXISTS (SELECT 1 FROM order_lines ol WHERE ol.order_id = orders.id
					AND (ol.product_name ILIKE ? OR ol.category_name ILIKE ?))`,
				pattern, pattern,
			),
		})
	}

	countQuery, countArgs, err := base.Columns("count(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	listBuilder := base.Columns(orderColumns).OrderBy("created_at DESC")
	if filter.Limit > 0 {
		listBuilder = listBuilder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		listBuilder = listBuilder.Offset(uint64(filter.Offset))
	}

	listQuery, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.conn.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		model, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *model)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	refs := make([]*order.Order, len(result))
	for i := range result {
		refs[i] = &result[i]
	}
	if err := r.loadLines(ctx, refs); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// loadLines populates lines and return events for the given orders.
func (r *OrderRepository) loadLines(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byOrder := make(map[int64]*order.Order, len(orders))
	orderIds := make([]int64, 0, len(orders))
	for _, o := range orders {
		byOrder[o.ID] = o
		orderIds = append(orderIds, o.ID)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, order_id, product_id, product_name, category_id, category_name,
			rented_amount, per_day_price_cents
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIds)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	lineIds := make([]int64, 0)
	for rows.Next() {
		var line orderline.Line
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.CategoryID,
			&line.CategoryName,
			&line.RentedAmount,
			&line.PerDayPriceCents,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		line.Returns = []orderline.Return{}

		o := byOrder[line.OrderID]
		o.Lines = append(o.Lines, line)
		lineIds = append(lineIds, line.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	if len(lineIds) == 0 {
		return nil
	}

	// Index lines only after every roster is fully built, so the
	// pointers stay valid.
	byLine := make(map[int64]*orderline.Line, len(lineIds))
	for _, o := range orders {
		for i := range o.Lines {
			byLine[o.Lines[i].ID] = &o.Lines[i]
		}
	}

	returnRows, err := r.conn.Query(ctx, `
		SELECT id, line_id, returned_quantity, returned_date, created_at
		FROM line_returns
		WHERE line_id = ANY($1)
		ORDER BY id
	`, lineIds)
	if err != nil {
		return fmt.Errorf("failed to query line returns: %w", err)
	}
	defer returnRows.Close()

	for returnRows.Next() {
		var ret orderline.Return
		err := returnRows.Scan(
			&ret.ID,
			&ret.LineID,
			&ret.ReturnedQuantity,
			&ret.ReturnedDate,
			&ret.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan line return: %w", err)
		}
		line := byLine[ret.LineID]
		line.Returns = append(line.Returns, ret)
	}
	if err := returnRows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	return nil
}
