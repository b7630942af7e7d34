package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/polytrade/trading-backend/internal/order/domain"
	platform "github.com/polytrade/trading-backend/internal/platform/postgres"
)

type Repository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewRepository(log *slog.Logger, db *platform.DB) *Repository {
	return &Repository{log: log, db: db}
}

const orderColumns = `id, reference, client_id, user_id, status, order_date,
	delivery_expected, delivery_actual, total_ht, total_tax, total_ttc,
	delivery_price, storage_price, discount_type, discount_value,
	devis_status, final_price, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, o *domain.Order) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		o.ID, o.Reference, o.ClientID, o.UserID, o.Status, o.OrderDate,
		o.DeliveryExpected, o.DeliveryActual, o.TotalHT, o.TotalTax, o.TotalTTC,
		o.DeliveryPrice, o.StoragePrice, nullString(string(o.DiscountType)), o.DiscountValue,
		nullString(string(o.DevisStatus)), o.FinalPrice, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repository) InsertLines(ctx context.Context, orderID uuid.UUID, lines []domain.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO order_lines (id, order_id, product_id, quantity, sales_unit,
				total_weight, unit_price, total_ht, total_tax, total_ttc, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			l.ID, orderID, l.ProductID, l.Quantity, l.SalesUnit,
			l.TotalWeight, l.UnitPrice, l.TotalHT, l.TotalTax, l.TotalTTC, l.Status)
	}
	return r.db.Querier(ctx).SendBatch(ctx, batch).Close()
}

func (r *Repository) DeleteLines(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.Querier(ctx).Exec(ctx,
		`DELETE FROM order_lines WHERE order_id = $1`, orderID)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return r.get(ctx, id, false)
}

func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id uuid.UUID, lock bool) (domain.Order, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Order{}, err
	}

	lines, err := r.linesFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Lines = lines
	return o, nil
}

func (r *Repository) linesFor(ctx context.Context, orderID uuid.UUID) ([]domain.LineItem, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT id, order_id, product_id, quantity, sales_unit, total_weight,
		       unit_price, total_ht, total_tax, total_ttc, status
		FROM order_lines WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LineItem
	for rows.Next() {
		var l domain.LineItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.SalesUnit,
			&l.TotalWeight, &l.UnitPrice, &l.TotalHT, &l.TotalTax, &l.TotalTTC, &l.Status); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateHeader(ctx context.Context, o *domain.Order) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE orders SET
			reference = $2, client_id = $3, user_id = $4, status = $5,
			order_date = $6, delivery_expected = $7, delivery_actual = $8,
			total_ht = $9, total_tax = $10, total_ttc = $11,
			delivery_price = $12, storage_price = $13,
			discount_type = $14, discount_value = $15,
			devis_status = $16, final_price = $17, updated_at = $18
		WHERE id = $1`,
		o.ID, o.Reference, o.ClientID, o.UserID, o.Status,
		o.OrderDate, o.DeliveryExpected, o.DeliveryActual,
		o.TotalHT, o.TotalTax, o.TotalTTC,
		o.DeliveryPrice, o.StoragePrice,
		nullString(string(o.DiscountType)), o.DiscountValue,
		nullString(string(o.DevisStatus)), o.FinalPrice, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, page, limit int) ([]domain.Order, int64, error) {
	q := r.db.Querier(ctx)

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		lines, err := r.linesFor(ctx, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Lines = lines
	}
	return out, total, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *Repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var discountType, devisStatus *string
	err := row.Scan(&o.ID, &o.Reference, &o.ClientID, &o.UserID, &o.Status, &o.OrderDate,
		&o.DeliveryExpected, &o.DeliveryActual, &o.TotalHT, &o.TotalTax, &o.TotalTTC,
		&o.DeliveryPrice, &o.StoragePrice, &discountType, &o.DiscountValue,
		&devisStatus, &o.FinalPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if discountType != nil {
		o.DiscountType = domain.DiscountType(*discountType)
	}
	if devisStatus != nil {
		o.DevisStatus = domain.DevisStatus(*devisStatus)
	}
	return o, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
