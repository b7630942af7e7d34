package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/polytrade/trading-backend/internal/payment/domain"
)

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PaymentRepository interface {
	Insert(ctx context.Context, p *domain.Payment) error
	Get(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page, limit int) ([]domain.Payment, int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
	HasCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)

	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type InstallmentRepository interface {
	Insert(ctx context.Context, i *domain.Installment) error
	Get(ctx context.Context, id uuid.UUID) (domain.Installment, error)
	Update(ctx context.Context, i *domain.Installment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Installment, error)

	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
}
