package application

import (
	"context"

	"github.com/google/uuid"
	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/shopspring/decimal"
)

type StockRepository interface {
	InsertThreshold(ctx context.Context, t *domain.Threshold) error
	UpdateThreshold(ctx context.Context, t *domain.Threshold) error
	GetThreshold(ctx context.Context, productID uuid.UUID) (domain.Threshold, error)
	ListThresholds(ctx context.Context, page, limit int) ([]domain.Threshold, int64, error)
	DeleteThreshold(ctx context.Context, productID uuid.UUID) error

	ProductStock(ctx context.Context, productID uuid.UUID) (catalog.Product, error)

	// Reserve applies an atomic conditional decrement and recomputes the
	// derived stock status in the same statement. Release is its inverse.
	Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	Release(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	AddSold(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
}
