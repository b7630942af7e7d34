package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	order "github.com/polytrade/trading-backend/internal/order/domain"
	"github.com/polytrade/trading-backend/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// Service keeps the payment ledger consistent with the orders it settles:
// every mutation validates its order inside the same transaction that
// touches the ledger row.
type Service struct {
	log  *slog.Logger
	tx   TxManager
	repo PaymentRepository
}

func NewService(log *slog.Logger, tx TxManager, repo PaymentRepository) *Service {
	return &Service{log: log, tx: tx, repo: repo}
}

type PaymentInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Amount  decimal.Decimal
	Method  domain.Method
	Status  domain.Status
}

func (in PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !in.Method.Valid() {
		return domain.ErrUnknownMethod
	}
	if in.Status != "" && !in.Status.Valid() {
		return domain.ErrUnknownStatus
	}
	return nil
}

func (s *Service) Add(ctx context.Context, in PaymentInput) (domain.Payment, error) {
	if err := in.validate(); err != nil {
		return domain.Payment{}, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	now := time.Now().UTC()
	p := domain.Payment{
		ID:        uuid.New(),
		OrderID:   in.OrderID,
		UserID:    in.UserID,
		Amount:    in.Amount,
		Method:    in.Method,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.OrderExists(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if !ok {
			return order.ErrOrderNotFound
		}
		ok, err = s.repo.UserExists(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return order.ErrUserNotFound
		}
		return s.repo.Insert(ctx, &p)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("payment recorded", "payment_id", p.ID, "order_id", p.OrderID, "amount", p.Amount)
	return p, nil
}

// Modify updates a payment, including moving it to a different order. The
// load and the write share one transaction so the old and new orders never
// see a half-reassigned payment.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, in PaymentInput) (domain.Payment, error) {
	if err := in.validate(); err != nil {
		return domain.Payment{}, err
	}

	var p domain.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.OrderID != p.OrderID {
			ok, err := s.repo.OrderExists(ctx, in.OrderID)
			if err != nil {
				return err
			}
			if !ok {
				return order.ErrOrderNotFound
			}
		}
		p.OrderID = in.OrderID
		p.Amount = in.Amount
		p.Method = in.Method
		if in.Status != "" {
			p.Status = in.Status
		}
		p.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, &p)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]domain.Payment, int64, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
