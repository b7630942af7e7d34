package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineStatus string

const (
	LineActive    LineStatus = "ACTIVE"
	LineInactive  LineStatus = "INACTIVE"
	LinePending   LineStatus = "PENDING"
	LineCompleted LineStatus = "COMPLETED"
)

func (s LineStatus) Valid() bool {
	switch s {
	case LineActive, LineInactive, LinePending, LineCompleted:
		return true
	}
	return false
}

// LineItem is one weight-priced product line inside an order. TotalWeight is
// authoritative for every stock movement; Quantity only counts sales units.
type LineItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	SalesUnit   SalesUnit
	TotalWeight decimal.Decimal // kg
	UnitPrice   decimal.Decimal // per kg
	TotalHT     decimal.Decimal
	TotalTax    decimal.Decimal
	TotalTTC    decimal.Decimal
	Status      LineStatus
}
