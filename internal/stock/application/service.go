package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/shopspring/decimal"
)

// Service guards product availability. Reservation and release are delegated
// to single conditional UPDATEs so concurrent orders against the same product
// serialize in the database instead of racing a check-then-write.
type Service struct {
	log  *slog.Logger
	repo StockRepository
}

func NewService(log *slog.Logger, repo StockRepository) *Service {
	return &Service{log: log, repo: repo}
}

// CheckStock is the side-effect-free availability probe. It fails when the
// product is already out of stock or the requested weight exceeds what is
// available. Reserve remains the only authority; a passing check can still
// lose the race and callers must treat Reserve's verdict as final.
func (s *Service) CheckStock(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	p, err := s.repo.ProductStock(ctx, productID)
	if err != nil {
		return err
	}
	if p.StockStatus == catalog.StockOutOfStock || p.AvailableQty.LessThan(qty) {
		return &domain.InsufficientStockError{
			ProductID: productID,
			Available: p.AvailableQty,
			Requested: qty,
		}
	}
	return nil
}

func (s *Service) Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if err := s.repo.Reserve(ctx, productID, qty); err != nil {
		return err
	}
	s.log.Debug("stock reserved", "product_id", productID, "qty_kg", qty)
	return nil
}

func (s *Service) Release(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if err := s.repo.Release(ctx, productID, qty); err != nil {
		return err
	}
	s.log.Debug("stock released", "product_id", productID, "qty_kg", qty)
	return nil
}

// AddSold bumps the cumulative sold counter when an order is confirmed.
// Availability is untouched: the weight was already deducted at reservation.
func (s *Service) AddSold(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	return s.repo.AddSold(ctx, productID, qty)
}

func (s *Service) CreateThresholds(ctx context.Context, productID uuid.UUID, minimum, reorder decimal.Decimal) (domain.Threshold, error) {
	now := time.Now().UTC()
	t := domain.Threshold{
		ProductID: productID,
		Minimum:   minimum,
		Reorder:   reorder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return domain.Threshold{}, err
	}
	if _, err := s.repo.ProductStock(ctx, productID); err != nil {
		return domain.Threshold{}, err
	}
	if err := s.repo.InsertThreshold(ctx, &t); err != nil {
		return domain.Threshold{}, err
	}
	s.log.Info("thresholds created", "product_id", productID, "minimum", minimum, "reorder", reorder)
	return t, nil
}

func (s *Service) UpdateThresholds(ctx context.Context, productID uuid.UUID, minimum, reorder decimal.Decimal) (domain.Threshold, error) {
	t := domain.Threshold{
		ProductID: productID,
		Minimum:   minimum,
		Reorder:   reorder,
		UpdatedAt: time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return domain.Threshold{}, err
	}
	if err := s.repo.UpdateThreshold(ctx, &t); err != nil {
		return domain.Threshold{}, err
	}
	s.log.Info("thresholds updated", "product_id", productID, "minimum", minimum, "reorder", reorder)
	return t, nil
}

func (s *Service) GetThreshold(ctx context.Context, productID uuid.UUID) (domain.Threshold, error) {
	return s.repo.GetThreshold(ctx, productID)
}

func (s *Service) ListThresholds(ctx context.Context, page, limit int) ([]domain.Threshold, int64, error) {
	return s.repo.ListThresholds(ctx, page, limit)
}

func (s *Service) DeleteThreshold(ctx context.Context, productID uuid.UUID) error {
	return s.repo.DeleteThreshold(ctx, productID)
}
