package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/polytrade/trading-backend/internal/catalog/domain"
)

type ProductRepository interface {
	Insert(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, id uuid.UUID) (domain.Product, error)
	List(ctx context.Context, page, limit int) ([]domain.Product, int64, error)
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
}
