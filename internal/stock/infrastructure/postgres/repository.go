package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	platform "github.com/polytrade/trading-backend/internal/platform/postgres"
	"github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewRepository(log *slog.Logger, db *platform.DB) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) InsertThreshold(ctx context.Context, t *domain.Threshold) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO stock_thresholds (product_id, minimum_threshold, reorder_threshold, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (product_id) DO NOTHING`,
		t.ProductID, t.Minimum, t.Reorder, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrThresholdExists
	}
	return nil
}

func (r *Repository) UpdateThreshold(ctx context.Context, t *domain.Threshold) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE stock_thresholds
		SET minimum_threshold = $2, reorder_threshold = $3, updated_at = $4
		WHERE product_id = $1`,
		t.ProductID, t.Minimum, t.Reorder, t.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrThresholdNotFound
	}
	return nil
}

func (r *Repository) GetThreshold(ctx context.Context, productID uuid.UUID) (domain.Threshold, error) {
	var t domain.Threshold
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT product_id, minimum_threshold, reorder_threshold, created_at, updated_at
		FROM stock_thresholds WHERE product_id = $1`, productID).
		Scan(&t.ProductID, &t.Minimum, &t.Reorder, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Threshold{}, domain.ErrThresholdNotFound
	}
	if err != nil {
		return domain.Threshold{}, err
	}
	return t, nil
}

func (r *Repository) ListThresholds(ctx context.Context, page, limit int) ([]domain.Threshold, int64, error) {
	q := r.db.Querier(ctx)

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM stock_thresholds`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT product_id, minimum_threshold, reorder_threshold, created_at, updated_at
		FROM stock_thresholds
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Threshold
	for rows.Next() {
		var t domain.Threshold
		if err := rows.Scan(&t.ProductID, &t.Minimum, &t.Reorder, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *Repository) DeleteThreshold(ctx context.Context, productID uuid.UUID) error {
	ct, err := r.db.Querier(ctx).Exec(ctx,
		`DELETE FROM stock_thresholds WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrThresholdNotFound
	}
	return nil
}

func (r *Repository) ProductStock(ctx context.Context, productID uuid.UUID) (catalog.Product, error) {
	var p catalog.Product
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT id, name, sku, sell_price, buy_price, available_qty, sold_qty, stock_status, archived, created_at, updated_at
		FROM products WHERE id = $1`, productID).
		Scan(&p.ID, &p.Name, &p.SKU, &p.SellPrice, &p.BuyPrice, &p.AvailableQty,
			&p.SoldQty, &p.StockStatus, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// Reserve decrements availability and rederives the stock status in one
// statement. The available_qty >= $2 guard is what prevents oversell under
// concurrent reservations; when it fails, the follow-up read tells the
// caller whether the product, its thresholds, or the quantity was the
// problem.
func (r *Repository) Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE products p
		SET available_qty = p.available_qty - $2,
		    stock_status = CASE
		        WHEN p.available_qty - $2 <= t.minimum_threshold THEN 'OUT_OF_STOCK'
		        WHEN p.available_qty - $2 <= t.reorder_threshold THEN 'BACK_ORDER'
		        ELSE 'AVAILABLE'
		    END,
		    updated_at = now()
		FROM stock_thresholds t
		WHERE p.id = $1 AND t.product_id = p.id AND p.available_qty >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return r.diagnose(ctx, productID, qty)
}

func (r *Repository) Release(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	ct, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE products p
		SET available_qty = p.available_qty + $2,
		    stock_status = CASE
		        WHEN p.available_qty + $2 <= t.minimum_threshold THEN 'OUT_OF_STOCK'
		        WHEN p.available_qty + $2 <= t.reorder_threshold THEN 'BACK_ORDER'
		        ELSE 'AVAILABLE'
		    END,
		    updated_at = now()
		FROM stock_thresholds t
		WHERE p.id = $1 AND t.product_id = p.id`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return r.diagnose(ctx, productID, decimal.Zero)
}

func (r *Repository) AddSold(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	ct, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE products SET sold_qty = sold_qty + $2, updated_at = now() WHERE id = $1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *Repository) diagnose(ctx context.Context, productID uuid.UUID, requested decimal.Decimal) error {
	var available decimal.Decimal
	var hasThreshold bool
	err := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT p.available_qty,
		       EXISTS (SELECT 1 FROM stock_thresholds t WHERE t.product_id = p.id)
		FROM products p WHERE p.id = $1`, productID).
		Scan(&available, &hasThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if !hasThreshold {
		return domain.ErrThresholdNotFound
	}
	return &domain.InsufficientStockError{
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}
