package application

import (
	"context"

	"github.com/google/uuid"
	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/polytrade/trading-backend/internal/order/domain"
	payment "github.com/polytrade/trading-backend/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// TxManager runs a function inside one all-or-nothing transaction; every
// repository call made with the derived context joins it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OrderRepository interface {
	Insert(ctx context.Context, o *domain.Order) error
	InsertLines(ctx context.Context, orderID uuid.UUID, lines []domain.LineItem) error
	DeleteLines(ctx context.Context, orderID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	// GetForUpdate locks the order row for the duration of the ambient
	// transaction so concurrent transitions serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateHeader(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, page, limit int) ([]domain.Order, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// StockKeeper is the stock service surface the order engine drives.
type StockKeeper interface {
	CheckStock(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	Release(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	AddSold(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
}

type ProductReader interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// PaymentLedger is the slice of the payment store the order engine needs:
// seeding a pending payment at creation, cascading deletion, and the
// completed-payment check that freezes line items.
type PaymentLedger interface {
	Insert(ctx context.Context, p *payment.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.Payment, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
	HasCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type InstallmentReader interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.Installment, error)
}

// OutboxEnqueuer records a domain event in the same transaction as the state
// change it describes.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) error
}
