package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrThresholdNotFound = errors.New("stock thresholds not found")
	ErrThresholdExists   = errors.New("stock thresholds already exist")
	ErrInvalidThresholds = errors.New("minimum threshold must be below reorder threshold")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Threshold is the per-product pair of stock levels that drives the derived
// stock status. Exactly one row exists per product, created explicitly
// before the product can take reservations.
type Threshold struct {
	ProductID uuid.UUID
	Minimum   decimal.Decimal
	Reorder   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Threshold) Validate() error {
	if t.Minimum.GreaterThanOrEqual(t.Reorder) {
		return ErrInvalidThresholds
	}
	return nil
}

// DeriveStatus maps an available quantity onto the stock status:
// qty <= minimum is out of stock, qty <= reorder is back order, anything
// above is available.
func (t Threshold) DeriveStatus(availableQty decimal.Decimal) catalog.StockStatus {
	switch {
	case availableQty.LessThanOrEqual(t.Minimum):
		return catalog.StockOutOfStock
	case availableQty.LessThanOrEqual(t.Reorder):
		return catalog.StockBackOrder
	default:
		return catalog.StockAvailable
	}
}

// InsufficientStockError reports the shortfall so the boundary can surface
// it to the caller.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %s kg, requested %s kg",
		e.ProductID, e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match the typed error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}
