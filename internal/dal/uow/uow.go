package uow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/rental-svc/internal/dal/interfaces/ibill"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iorder"
	"github.com/rentora/rental-svc/internal/dal/interfaces/ioutbox"
	"github.com/rentora/rental-svc/internal/dal/interfaces/iproduct"
	"github.com/rentora/rental-svc/internal/dal/postgres"
	billrepo "github.com/rentora/rental-svc/internal/dal/repositories/bill/postgres"
	orderrepo "github.com/rentora/rental-svc/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/rentora/rental-svc/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/rentora/rental-svc/internal/dal/repositories/product/postgres"
)

type unitOfWork struct {
	pool        *pgxpool.Pool
	tx          pgx.Tx
	orderRepo   iorder.IOrderRepository
	productRepo iproduct.IProductRepository
	outboxRepo  ioutbox.IOutboxRepository
	billRepo    ibill.IBillRepository
}

// NewUnitOfWork binds repositories to the pool. After Begin they are
// rebound to the transaction, so every repository call between Begin and
// Commit shares one transaction.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	pool := client.Pool()
	return &unitOfWork{
		pool:        pool,
		orderRepo:   orderrepo.NewOrderRepository(pool),
		productRepo: productrepo.NewProductRepository(pool),
		outboxRepo:  outboxrepo.NewOutboxRepository(pool),
		billRepo:    billrepo.NewBillRepository(pool),
	}
}

func (u *unitOfWork) OrderRepository() iorder.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) ProductRepository() iproduct.IProductRepository {
	return u.productRepo
}

func (u *unitOfWork) OutboxRepository() ioutbox.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) BillRepository() ibill.IBillRepository {
	return u.billRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.productRepo = productrepo.NewProductRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)
	u.billRepo = billrepo.NewBillRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

// Rollback is safe to defer: after a successful commit it is a no-op.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
