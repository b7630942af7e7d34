package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

type Service struct {
	log  *slog.Logger
	repo ProductRepository
}

func NewService(log *slog.Logger, repo ProductRepository) *Service {
	return &Service{log: log, repo: repo}
}

type CreateProductInput struct {
	Name         string
	SKU          string
	SellPrice    decimal.Decimal
	BuyPrice     decimal.NullDecimal
	AvailableQty decimal.Decimal
}

func (s *Service) Create(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if in.Name == "" || in.SKU == "" {
		return domain.Product{}, ErrInvalidProduct
	}
	if in.SellPrice.IsNegative() || in.AvailableQty.IsNegative() {
		return domain.Product{}, ErrInvalidProduct
	}

	now := time.Now().UTC()
	p := domain.Product{
		ID:           uuid.New(),
		Name:         in.Name,
		SKU:          in.SKU,
		SellPrice:    in.SellPrice,
		BuyPrice:     in.BuyPrice,
		AvailableQty: in.AvailableQty,
		SoldQty:      decimal.Zero,
		StockStatus:  domain.StockAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, &p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]domain.Product, int64, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetArchived(ctx, id, true)
}
