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

type Repository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewRepository(log *slog.Logger, db *platform.DB) *Repository {
	return &Repository{log: log, db: db}
}

const paymentColumns = `id, order_id, user_id, amount, method, status, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.Method, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	row := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *Repository) Update(ctx context.Context, p *domain.Payment) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE payments
		SET order_id = $2, user_id = $3, amount = $4, method = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.Method, p.Status, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, page, limit int) ([]domain.Payment, int64, error) {
	q := r.db.Querier(ctx)

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collectPayments(rows)
	return out, total, err
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *Repository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.Querier(ctx).Exec(ctx,
		`DELETE FROM payments WHERE order_id = $1`, orderID)
	return err
}

func (r *Repository) HasCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1 AND status = $2)`,
		orderID, domain.StatusCompleted).Scan(&ok)
	return ok, err
}

func (r *Repository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&ok)
	return ok, err
}

func (r *Repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&ok)
	return ok, err
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
