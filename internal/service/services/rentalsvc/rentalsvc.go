package rentalsvc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/rentora/rental-svc/internal/dal/interfaces/ibill"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iorder"
	"github.com/rentora/rental-svc/internal/dal/interfaces/ioutbox"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iproduct"
	"github.com/rentora/rental-svc/internal/dal/postgres"
	"github.com/rentora/rental-svc/internal/dal/uow"
	"github.com/rentora/rental-svc/internal/service/models/apperrors"
	"github.com/rentora/rental-svc/internal/service/models/bill"
	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/models/orderline"
	"github.com/rentora/rental-svc/internal/service/models/outbox"
	"github.com/rentora/rental-svc/internal/service/pricing"
	"github.com/rentora/rental-svc/internal/service/reconciler"
)

// RentalService drives the order lifecycle: stock reservation on create,
// partial returns, cancellation, cost finalization and billing.
type RentalService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorder.IOrderRepository
	ProductRepository() iproduct.IProductRepository
	OutboxRepository() ioutbox.IOutboxRepository
	BillRepository() ibill.IBillRepository
}

// option is a function that configures the RentalService.
type option func(*RentalService)

// MustNewRentalService creates a new RentalService.
func MustNewRentalService(opts ...option) *RentalService {
	s := &RentalService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("rentalsvc: no unit of work configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the RentalService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *RentalService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// CreateOrderLineModel is one requested line in a create call.
type CreateOrderLineModel struct {
	ProductID    int64
	RentedAmount int64
}

// CreateOrderModel is the validated input for CreateOrder.
type CreateOrderModel struct {
	CustomerName   string
	CustomerPhone  string
	RentingStart   time.Time
	RentingEnd     *time.Time
	PaymentStatus  order.PaymentStatus
	IdempotencyKey string
	CreatedBy      int64
	Lines          []CreateOrderLineModel
}

// UpdateOrderModel is a partial patch of order-level labels. Quantities
// and stock are out of reach here; they only move through the
// reservation/return protocol.
type UpdateOrderModel struct {
	CustomerName  *string
	CustomerPhone *string
	RentingStart  *time.Time
	RentingEnd    *time.Time
	PaymentStatus *order.PaymentStatus
	Status        *order.Status
}

// PartialReturnResult reports the outcome of a partial return.
type PartialReturnResult struct {
	Order       *order.Order
	AllReturned bool
	// TotalCostCents is the cost accumulated over all return events so
	// far. It becomes the order's final price once AllReturned is true.
	TotalCostCents int64
}

// CreateOrder reserves stock for every requested line and persists the
// order in one transaction. If any line cannot be reserved the whole
// transaction rolls back, so no partial reservation survives a failure.
func (s *RentalService) CreateOrder(ctx context.Context, model CreateOrderModel) (*order.Order, error) {
	if err := validateCreateOrder(&model); err != nil {
		return nil, err
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if existing, err := work.OrderRepository().GetByIdempotencyKey(ctx, model.IdempotencyKey); err != nil {
		return nil, apperrors.Internal(err)
	} else if existing != nil {
		// Retried create: the order already exists, do not reserve again.
		return existing, nil
	}

	now := time.Now()
	o := order.Order{
		CustomerName:   strings.TrimSpace(model.CustomerName),
		CustomerPhone:  strings.TrimSpace(model.CustomerPhone),
		RentingStart:   model.RentingStart,
		RentingEnd:     model.RentingEnd,
		PaymentStatus:  model.PaymentStatus,
		Status:         order.StatusOnRent,
		IdempotencyKey: model.IdempotencyKey,
		CreatedBy:      model.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, line := range model.Lines {
		p, err := work.ProductRepository().GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if p == nil {
			return nil, apperrors.ProductNotFound(line.ProductID)
		}

		if _, err := work.ProductRepository().ReserveStock(ctx, p.ID, line.RentedAmount); err != nil {
			return nil, err
		}

		o.Lines = append(o.Lines, orderline.Line{
			ProductID:        p.ID,
			ProductName:      p.Name,
			CategoryID:       p.CategoryID,
			CategoryName:     p.CategoryName,
			RentedAmount:     line.RentedAmount,
			PerDayPriceCents: p.PerDayPriceCents,
			Returns:          []orderline.Return{},
		})
	}

	inserted, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		// A concurrent create with the same key won the insert race;
		// roll back our reservations and hand back the winner's order.
		if errors.Is(err, apperrors.DuplicateRequest("")) {
			_ = work.Rollback(ctx)
			return s.newUOW().OrderRepository().GetByIdempotencyKey(ctx, model.IdempotencyKey)
		}
		return nil, err
	}

	if err := s.insertEvent(ctx, work, outbox.RoutingKeyOrderCreated, orderEventPayload{
		OrderID:     inserted.ID,
		OrderStatus: inserted.Status.String(),
		ActorID:     model.CreatedBy,
		OccurredAt:  now,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return inserted, nil
}

// CancelOrder releases the never-returned portion of every line back to
// stock and moves the order to cancelled. Quantity already returned was
// released at return time and must not be released twice.
func (s *RentalService) CancelOrder(ctx context.Context, orderID, actorID int64) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}
	if o.Status != order.StatusOnRent {
		return nil, apperrors.InvalidTransition(o.Status.String(), order.StatusCancelled.String())
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		if remaining := line.RemainingQuantity(); remaining > 0 {
			if _, err := work.ProductRepository().ReleaseStock(ctx, line.ProductID, remaining); err != nil {
				return nil, err
			}
		}
	}

	o.Status = order.StatusCancelled
	o.UpdatedAt = time.Now()
	if err := work.OrderRepository().UpdateHeader(ctx, o); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.insertEvent(ctx, work, outbox.RoutingKeyOrderCancelled, orderEventPayload{
		OrderID:     o.ID,
		OrderStatus: o.Status.String(),
		ActorID:     actorID,
		OccurredAt:  o.UpdatedAt,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return o, nil
}

// PartialReturn validates and commits a return on one line, releases the
// returned quantity back to stock, and auto-finalizes the order when
// every line's remaining quantity reaches zero.
func (s *RentalService) PartialReturn(
	ctx context.Context,
	orderID, productID int64,
	qty int64,
	returnedDate time.Time,
	actorID int64,
) (*PartialReturnResult, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}
	if o.Status.Terminal() {
		return nil, apperrors.InvalidTransition(o.Status.String(), o.Status.String())
	}

	lines := o.LinesForProduct(productID)
	if len(lines) == 0 {
		return nil, apperrors.LineNotFound(productID)
	}

	// A product can appear on several independent lines; the return is
	// applied to the first line that still has quantity out.
	target := lines[0]
	for _, line := range lines {
		if line.RemainingQuantity() > 0 {
			target = line
			break
		}
	}

	if err := reconciler.ValidateReturn(target, qty, returnedDate, o.RentingStart); err != nil {
		return nil, err
	}

	event := reconciler.CommitReturn(target, qty, returnedDate)
	stored, err := work.OrderRepository().InsertReturn(ctx, event)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	target.Returns[len(target.Returns)-1] = *stored

	if _, err := work.ProductRepository().ReleaseStock(ctx, productID, qty); err != nil {
		return nil, err
	}

	totalCost := pricing.OrderCost(o.RentingStart, o.Lines)
	allReturned := o.AllReturned()

	o.UpdatedAt = time.Now()
	if allReturned {
		o.Status = order.StatusReturnedAfterRent
		o.TotalPriceCents = totalCost
	}
	if err := work.OrderRepository().UpdateHeader(ctx, o); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.insertEvent(ctx, work, outbox.RoutingKeyProductReturned, orderEventPayload{
		OrderID:          o.ID,
		OrderStatus:      o.Status.String(),
		ActorID:          actorID,
		OccurredAt:       o.UpdatedAt,
		ProductID:        productID,
		ReturnedQuantity: qty,
	}); err != nil {
		return nil, err
	}
	if allReturned {
		if err := s.insertEvent(ctx, work, outbox.RoutingKeyOrderCompleted, orderEventPayload{
			OrderID:         o.ID,
			OrderStatus:     o.Status.String(),
			ActorID:         actorID,
			OccurredAt:      o.UpdatedAt,
			TotalPriceCents: totalCost,
		}); err != nil {
			return nil, err
		}
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return &PartialReturnResult{
		Order:          o,
		AllReturned:    allReturned,
		TotalCostCents: totalCost,
	}, nil
}

// FinalizeReturn closes an order once every quantity is back, computing
// the final price exactly as the auto-close in PartialReturn does. A
// second finalize on a terminal order fails with InvalidTransition.
func (s *RentalService) FinalizeReturn(ctx context.Context, orderID, actorID int64) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}
	if o.Status.Terminal() {
		return nil, apperrors.InvalidTransition(o.Status.String(), order.StatusReturnedAfterRent.String())
	}
	if remaining := o.RemainingTotal(); remaining > 0 {
		return nil, apperrors.IncompleteReturn(remaining)
	}

	o.TotalPriceCents = pricing.OrderCost(o.RentingStart, o.Lines)
	o.Status = order.StatusReturnedAfterRent
	o.UpdatedAt = time.Now()
	if err := work.OrderRepository().UpdateHeader(ctx, o); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.insertEvent(ctx, work, outbox.RoutingKeyOrderCompleted, orderEventPayload{
		OrderID:         o.ID,
		OrderStatus:     o.Status.String(),
		ActorID:         actorID,
		OccurredAt:      o.UpdatedAt,
		TotalPriceCents: o.TotalPriceCents,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return o, nil
}

// UpdateOrderFields patches order-level labels without touching stock,
// lines or totals. It is an escape hatch, not part of the lifecycle.
func (s *RentalService) UpdateOrderFields(ctx context.Context, orderID int64, patch UpdateOrderModel, actorID int64) (*order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}

	if patch.CustomerName != nil {
		o.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.CustomerPhone != nil {
		o.CustomerPhone = strings.TrimSpace(*patch.CustomerPhone)
	}
	if patch.RentingStart != nil {
		o.RentingStart = *patch.RentingStart
	}
	if patch.RentingEnd != nil {
		o.RentingEnd = patch.RentingEnd
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	o.UpdatedAt = time.Now()

	if err := work.OrderRepository().UpdateHeader(ctx, o); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return o, nil
}

// GenerateBill creates the billing record for a completed order. The
// billing period runs from the rental start to the latest return date.
// Generating twice returns the existing bill.
func (s *RentalService) GenerateBill(ctx context.Context, orderID, actorID int64) (*bill.Bill, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}
	if o.Status != order.StatusReturnedAfterRent {
		return nil, apperrors.InvalidTransition(o.Status.String(), "billed")
	}

	if existing, err := work.BillRepository().GetByOrderID(ctx, o.ID); err != nil {
		return nil, apperrors.Internal(err)
	} else if existing != nil {
		return existing, nil
	}

	periodEnd := o.RentingStart
	for i := range o.Lines {
		for _, r := range o.Lines[i].Returns {
			if r.ReturnedDate.After(periodEnd) {
				periodEnd = r.ReturnedDate
			}
		}
	}

	b := bill.Bill{
		OrderID:         o.ID,
		BillNumber:      "BILL-" + uuid.NewString(),
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		RentingStart:    o.RentingStart,
		RentingEnd:      periodEnd,
		RentedDays:      pricing.RentalDays(o.RentingStart, periodEnd),
		TotalPriceCents: o.TotalPriceCents,
		PaymentStatus:   o.PaymentStatus,
		GeneratedBy:     actorID,
		GeneratedAt:     time.Now(),
	}

	inserted, err := work.BillRepository().Insert(ctx, b)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.insertEvent(ctx, work, outbox.RoutingKeyBillGenerated, orderEventPayload{
		OrderID:         o.ID,
		OrderStatus:     o.Status.String(),
		ActorID:         actorID,
		OccurredAt:      inserted.GeneratedAt,
		TotalPriceCents: inserted.TotalPriceCents,
		BillNumber:      inserted.BillNumber,
	}); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, apperrors.Internal(err)
	}

	return inserted, nil
}

// GetOrders lists orders with search and pagination.
func (s *RentalService) GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, int64, error) {
	work := s.newUOW()

	orders, total, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if orders == nil {
		orders = []order.Order{}
	}

	return orders, total, nil
}

// GetOrder loads a single order.
func (s *RentalService) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.OrderNotFound(orderID)
	}

	return o, nil
}

func validateCreateOrder(model *CreateOrderModel) error {
	if strings.TrimSpace(model.CustomerName) == "" {
		return apperrors.MissingField("customerName")
	}
	if strings.TrimSpace(model.CustomerPhone) == "" {
		return apperrors.MissingField("customerPhoneNumber")
	}
	if model.RentingStart.IsZero() {
		return apperrors.MissingField("rentingStartDate")
	}
	if model.CreatedBy <= 0 {
		return apperrors.MissingField("createdBy")
	}
	if len(model.Lines) == 0 {
		return apperrors.MissingField("products")
	}
	for _, line := range model.Lines {
		if line.ProductID <= 0 {
			return apperrors.MissingField("productId")
		}
		if line.RentedAmount <= 0 {
			return apperrors.InvalidQuantity("rentedAmount", "rented amount must be positive")
		}
	}
	if model.PaymentStatus == "" {
		model.PaymentStatus = order.PaymentPending
	}
	if model.IdempotencyKey == "" {
		// Callers that do not supply a key get no retry protection.
		model.IdempotencyKey = uuid.NewString()
	}
	return nil
}

// orderEventPayload is the body of an order lifecycle event published
// through the outbox.
type orderEventPayload struct {
	OrderID          int64     `json:"orderId"`
	OrderStatus      string    `json:"orderStatus"`
	ActorID          int64     `json:"actorId"`
	OccurredAt       time.Time `json:"occurredAt"`
	ProductID        int64     `json:"productId,omitempty"`
	ReturnedQuantity int64     `json:"returnedQuantity,omitempty"`
	TotalPriceCents  int64     `json:"totalPriceCents,omitempty"`
	BillNumber       string    `json:"billNumber,omitempty"`
}

// insertEvent stages a lifecycle event in the outbox inside the same
// transaction as the state change it describes.
func (s *RentalService) insertEvent(ctx context.Context, work unitOfWork, routingKey string, payload orderEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Internal(err)
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	now := time.Now()
	msg := outbox.Message{
		QueueName:    viper.GetString("rabbitmq.order_events.queue"),
		ExchangeName: viper.GetString("rabbitmq.order_events.exchange"),
		RoutingKey:   routingKey,
		Payload:      body,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}

	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return apperrors.Internal(err)
	}

	return nil
}
