package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/polytrade/trading-backend/internal/catalog/domain"
	platform "github.com/polytrade/trading-backend/internal/platform/postgres"
)

type Repository struct {
	log *slog.Logger
	db  *platform.DB
}

func NewRepository(log *slog.Logger, db *platform.DB) *Repository {
	return &Repository{log: log, db: db}
}

const productColumns = `id, name, sku, sell_price, buy_price, available_qty, sold_qty, stock_status, archived, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, p *domain.Product) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Name, p.SKU, p.SellPrice, p.BuyPrice, p.AvailableQty, p.SoldQty,
		p.StockStatus, p.Archived, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *Repository) List(ctx context.Context, page, limit int) ([]domain.Product, int64, error) {
	q := r.db.Querier(ctx)

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM products WHERE NOT archived`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE NOT archived
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	ct, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE products SET archived = $2, updated_at = now() WHERE id = $1`, id, archived)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.SellPrice, &p.BuyPrice, &p.AvailableQty,
		&p.SoldQty, &p.StockStatus, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
