package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// StockStatus is derived from the available quantity and the product's
// thresholds; it is never set directly by callers.
type StockStatus string

const (
	StockAvailable  StockStatus = "AVAILABLE"
	StockBackOrder  StockStatus = "BACK_ORDER"
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockAvailable, StockBackOrder, StockOutOfStock:
		return true
	}
	return false
}

// Product is a weight-priced catalog entry. The order engine owns every
// mutation of AvailableQty, SoldQty and StockStatus; the rest belongs to the
// catalog subsystem.
type Product struct {
	ID           uuid.UUID
	Name         string
	SKU          string
	SellPrice    decimal.Decimal // per kg
	BuyPrice     decimal.NullDecimal
	AvailableQty decimal.Decimal // kg
	SoldQty      decimal.Decimal // cumulative kg sold
	StockStatus  StockStatus
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
