package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/polytrade/trading-backend/internal/payment/domain"
	platform "github.com/polytrade/trading-backend/internal/platform/postgres"
)

type InstallmentRepository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewInstallmentRepository(log *slog.Logger, db *platform.DB) *InstallmentRepository {
	return &InstallmentRepository{log: log, db: db}
}

const installmentColumns = `id, order_id, due_date, amount, status, description, created_at, updated_at`

func (r *InstallmentRepository) Insert(ctx context.Context, i *domain.Installment) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO payment_installments (`+installmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		i.ID, i.OrderID, i.DueDate, i.Amount, i.Status, i.Description, i.CreatedAt, i.UpdatedAt)
	return err
}

func (r *InstallmentRepository) Get(ctx context.Context, id uuid.UUID) (domain.Installment, error) {
	var i domain.Installment
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+installmentColumns+` FROM payment_installments WHERE id = $1`, id).
		Scan(&i.ID, &i.OrderID, &i.DueDate, &i.Amount, &i.Status, &i.Description,
			&i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Installment{}, domain.ErrInstallmentNotFound
	}
	if err != nil {
		return domain.Installment{}, err
	}
	return i, nil
}

func (r *InstallmentRepository) Update(ctx context.Context, i *domain.Installment) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE payment_installments
		SET due_date = $2, amount = $3, status = $4, description = $5, updated_at = $6
		WHERE id = $1`,
		i.ID, i.DueDate, i.Amount, i.Status, i.Description, i.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInstallmentNotFound
	}
	return nil
}

func (r *InstallmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Querier(ctx).Exec(ctx,
		`DELETE FROM payment_installments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInstallmentNotFound
	}
	return nil
}

func (r *InstallmentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Installment, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+installmentColumns+` FROM payment_installments
		WHERE order_id = $1
		ORDER BY due_date`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Installment
	for rows.Next() {
		var i domain.Installment
		if err := rows.Scan(&i.ID, &i.OrderID, &i.DueDate, &i.Amount, &i.Status,
			&i.Description, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *InstallmentRepository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&ok)
	return ok, err
}
