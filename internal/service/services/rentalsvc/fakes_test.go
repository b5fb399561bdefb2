package rentalsvc

import (
	"context"
	"strings"
	"time"

	"github.com/rentora/rental-svc/internal/dal/interfaces/ibill"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iorder"
	"github.com/rentora/rental-svc/internal/dal/interfaces/ioutbox"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iproduct"
	"github.com/rentora/rental-svc/internal/service/models/apperrors"
	"github.com/rentora/rental-svc/internal/service/models/bill"
	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/models/orderline"
	"github.com/rentora/rental-svc/internal/service/models/outbox"
	"github.com/rentora/rental-svc/internal/service/models/product"
)

// testStore is an in-memory stand-in for Postgres. Begin snapshots the
// whole state and Rollback restores it, mirroring transaction semantics
// closely enough to exercise the service's rollback paths.
type testStore struct {
	orders   map[int64]order.Order
	products map[int64]product.Product
	bills    map[int64]bill.Bill // keyed by order id
	outbox   []outbox.Message

	nextOrderID  int64
	nextLineID   int64
	nextReturnID int64
	nextBillID   int64
}

func newTestStore() *testStore {
	return &testStore{
		orders:   make(map[int64]order.Order),
		products: make(map[int64]product.Product),
		bills:    make(map[int64]bill.Bill),
	}
}

func (s *testStore) addProduct(p product.Product) {
	s.products[p.ID] = p
}

func (s *testStore) snapshot() *testStore {
	clone := &testStore{
		orders:       make(map[int64]order.Order, len(s.orders)),
		products:     make(map[int64]product.Product, len(s.products)),
		bills:        make(map[int64]bill.Bill, len(s.bills)),
		outbox:       append([]outbox.Message(nil), s.outbox...),
		nextOrderID:  s.nextOrderID,
		nextLineID:   s.nextLineID,
		nextReturnID: s.nextReturnID,
		nextBillID:   s.nextBillID,
	}
	for id, o := range s.orders {
		clone.orders[id] = cloneOrder(o)
	}
	for id, p := range s.products {
		clone.products[id] = p
	}
	for id, b := range s.bills {
		clone.bills[id] = b
	}
	return clone
}

func (s *testStore) restore(snap *testStore) {
	s.orders = snap.orders
	s.products = snap.products
	s.bills = snap.bills
	s.outbox = snap.outbox
	s.nextOrderID = snap.nextOrderID
	s.nextLineID = snap.nextLineID
	s.nextReturnID = snap.nextReturnID
	s.nextBillID = snap.nextBillID
}

func cloneOrder(o order.Order) order.Order {
	lines := make([]orderline.Line, len(o.Lines))
	for i, line := range o.Lines {
		line.Returns = append([]orderline.Return(nil), line.Returns...)
		lines[i] = line
	}
	o.Lines = lines
	return o
}

func (s *testStore) newUOW() unitOfWork {
	return &fakeUOW{store: s}
}

func newTestService(store *testStore) *RentalService {
	return &RentalService{newUOW: store.newUOW}
}

type fakeUOW struct {
	store *testStore
	snap  *testStore
	done  bool
}

func (u *fakeUOW) Begin(ctx context.Context) error {
	u.snap = u.store.snapshot()
	return nil
}

func (u *fakeUOW) Commit(ctx context.Context) error {
	u.done = true
	return nil
}

func (u *fakeUOW) Rollback(ctx context.Context) error {
	if u.snap != nil && !u.done {
		u.store.restore(u.snap)
		u.done = true
	}
	return nil
}

func (u *fakeUOW) OrderRepository() iorder.IOrderRepository {
	return &fakeOrderRepo{store: u.store}
}

func (u *fakeUOW) ProductRepository() iproduct.IProductRepository {
	return &fakeProductRepo{store: u.store}
}

func (u *fakeUOW) OutboxRepository() ioutbox.IOutboxRepository {
	return &fakeOutboxRepo{store: u.store}
}

func (u *fakeUOW) BillRepository() ibill.IBillRepository {
	return &fakeBillRepo{store: u.store}
}

type fakeOrderRepo struct {
	store *testStore
}

func (r *fakeOrderRepo) Insert(ctx context.Context, o order.Order) (*order.Order, error) {
	for _, existing := range r.store.orders {
		if existing.IdempotencyKey == o.IdempotencyKey {
			return nil, apperrors.DuplicateRequest(o.IdempotencyKey)
		}
	}

	r.store.nextOrderID++
	o.ID = r.store.nextOrderID
	for i := range o.Lines {
		r.store.nextLineID++
		o.Lines[i].ID = r.store.nextLineID
		o.Lines[i].OrderID = o.ID
	}
	r.store.orders[o.ID] = cloneOrder(o)

	return &o, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	clone := cloneOrder(o)
	return &clone, nil
}

func (r *fakeOrderRepo) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	for _, o := range r.store.orders {
		if o.IdempotencyKey == key {
			clone := cloneOrder(o)
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) UpdateHeader(ctx context.Context, o *order.Order) error {
	stored, ok := r.store.orders[o.ID]
	if !ok {
		return apperrors.OrderNotFound(o.ID)
	}
	stored.CustomerName = o.CustomerName
	stored.CustomerPhone = o.CustomerPhone
	stored.RentingStart = o.RentingStart
	stored.RentingEnd = o.RentingEnd
	stored.TotalPriceCents = o.TotalPriceCents
	stored.PaymentStatus = o.PaymentStatus
	stored.Status = o.Status
	stored.UpdatedAt = o.UpdatedAt
	r.store.orders[o.ID] = stored
	return nil
}

func (r *fakeOrderRepo) InsertReturn(ctx context.Context, ret orderline.Return) (*orderline.Return, error) {
	for id, o := range r.store.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == ret.LineID {
				r.store.nextReturnID++
				ret.ID = r.store.nextReturnID
				o.Lines[i].Returns = append(o.Lines[i].Returns, ret)
				r.store.orders[id] = o
				return &ret, nil
			}
		}
	}
	return nil, apperrors.LineNotFound(ret.LineID)
}

func (r *fakeOrderRepo) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, int64, error) {
	var result []order.Order
	for _, o := range r.store.orders {
		if filter.Status != "" && o.Status.String() != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(o.CustomerName, filter.Search) {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	return result, int64(len(result)), nil
}

type fakeProductRepo struct {
	store *testStore
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProductRepo) ReserveStock(ctx context.Context, id, qty int64) (int64, error) {
	p, ok := r.store.products[id]
	if !ok {
		return 0, apperrors.ProductNotFound(id)
	}
	if p.Stock < qty {
		return 0, apperrors.InsufficientStock(p.Name, p.Stock)
	}
	p.Stock -= qty
	r.store.products[id] = p
	return p.Stock, nil
}

func (r *fakeProductRepo) ReleaseStock(ctx context.Context, id, qty int64) (int64, error) {
	p, ok := r.store.products[id]
	if !ok {
		return 0, apperrors.ProductNotFound(id)
	}
	p.Stock += qty
	r.store.products[id] = p
	return p.Stock, nil
}

type fakeOutboxRepo struct {
	store *testStore
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, msg outbox.Message) error {
	msg.ID = int64(len(r.store.outbox) + 1)
	r.store.outbox = append(r.store.outbox, msg)
	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit > len(r.store.outbox) {
		limit = len(r.store.outbox)
	}
	return append([]outbox.Message(nil), r.store.outbox[:limit]...), nil
}

func (r *fakeOutboxRepo) Delete(ctx context.Context, id int64) error {
	for i, msg := range r.store.outbox {
		if msg.ID == id {
			r.store.outbox = append(r.store.outbox[:i], r.store.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeOutboxRepo) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	for i := range r.store.outbox {
		if r.store.outbox[i].ID == id {
			r.store.outbox[i].RetryCount = retryCount
			r.store.outbox[i].LastError = lastError
			r.store.outbox[i].NextRetryAt = nextRetryAt
			return nil
		}
	}
	return nil
}

type fakeBillRepo struct {
	store *testStore
}

func (r *fakeBillRepo) Insert(ctx context.Context, b bill.Bill) (*bill.Bill, error) {
	r.store.nextBillID++
	b.ID = r.store.nextBillID
	r.store.bills[b.OrderID] = b
	return &b, nil
}

func (r *fakeBillRepo) GetByOrderID(ctx context.Context, orderID int64) (*bill.Bill, error) {
	b, ok := r.store.bills[orderID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}
