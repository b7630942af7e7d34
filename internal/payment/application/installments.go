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

// InstallmentService manages the expected-payment schedule. The schedule is
// deliberately not reconciled against the payment ledger; that job belongs
// to a future external collaborator.
type InstallmentService struct {
	log  *slog.Logger
	repo InstallmentRepository
}

func NewInstallmentService(log *slog.Logger, repo InstallmentRepository) *InstallmentService {
	return &InstallmentService{log: log, repo: repo}
}

type InstallmentInput struct {
	OrderID     uuid.UUID
	DueDate     time.Time
	Amount      decimal.Decimal
	Status      domain.Status
	Description string
}

func (s *InstallmentService) Create(ctx context.Context, in InstallmentInput) (domain.Installment, error) {
	if !in.Amount.IsPositive() {
		return domain.Installment{}, domain.ErrInvalidAmount
	}
	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return domain.Installment{}, domain.ErrUnknownStatus
	}

	ok, err := s.repo.OrderExists(ctx, in.OrderID)
	if err != nil {
		return domain.Installment{}, err
	}
	if !ok {
		return domain.Installment{}, order.ErrOrderNotFound
	}

	now := time.Now().UTC()
	inst := domain.Installment{
		ID:          uuid.New(),
		OrderID:     in.OrderID,
		DueDate:     in.DueDate,
		Amount:      in.Amount,
		Status:      status,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, &inst); err != nil {
		return domain.Installment{}, err
	}
	s.log.Info("installment scheduled", "installment_id", inst.ID, "order_id", inst.OrderID, "due", inst.DueDate)
	return inst, nil
}

type InstallmentUpdate struct {
	DueDate     *time.Time
	Amount      decimal.NullDecimal
	Status      domain.Status
	Description *string
}

func (s *InstallmentService) Update(ctx context.Context, id uuid.UUID, in InstallmentUpdate) (domain.Installment, error) {
	inst, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Installment{}, err
	}
	if in.DueDate != nil {
		inst.DueDate = *in.DueDate
	}
	if in.Amount.Valid {
		if !in.Amount.Decimal.IsPositive() {
			return domain.Installment{}, domain.ErrInvalidAmount
		}
		inst.Amount = in.Amount.Decimal
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return domain.Installment{}, domain.ErrUnknownStatus
		}
		inst.Status = in.Status
	}
	if in.Description != nil {
		inst.Description = *in.Description
	}
	inst.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &inst); err != nil {
		return domain.Installment{}, err
	}
	return inst, nil
}

func (s *InstallmentService) Get(ctx context.Context, id uuid.UUID) (domain.Installment, error) {
	return s.repo.Get(ctx, id)
}

func (s *InstallmentService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Installment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *InstallmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
