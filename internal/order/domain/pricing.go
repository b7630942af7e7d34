package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// LineRequest is a caller's line as it arrives at the boundary: a quantity
// in some sales unit, optionally an overridden unit price (quote-negotiated
// pricing) and caller-computed totals.
type LineRequest struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	SalesUnit SalesUnit
	UnitPrice decimal.NullDecimal
	TotalHT   decimal.NullDecimal
	TotalTax  decimal.NullDecimal
	TotalTTC  decimal.NullDecimal
	Status    LineStatus
}

// PriceLine turns a request into a line item. The weight is always derived
// from the unit table — stock is validated against weight, never the raw
// quantity. Caller-supplied totals are trusted as-is; when absent, the
// advisory computation prices the weight at the effective unit price with no
// tax. standardPrice is the product's per-kg sell price.
func PriceLine(req LineRequest, standardPrice decimal.Decimal) (LineItem, error) {
	if !req.Quantity.IsPositive() {
		return LineItem{}, ErrInvalidQuantity
	}
	unitWeight, err := UnitWeight(req.SalesUnit)
	if err != nil {
		return LineItem{}, err
	}
	totalWeight := req.Quantity.Mul(unitWeight)

	unitPrice := standardPrice
	if req.UnitPrice.Valid {
		unitPrice = req.UnitPrice.Decimal
	}

	totalHT := totalWeight.Mul(unitPrice).Round(2)
	if req.TotalHT.Valid {
		totalHT = req.TotalHT.Decimal
	}
	totalTax := decimal.Zero
	if req.TotalTax.Valid {
		totalTax = req.TotalTax.Decimal
	}
	totalTTC := totalHT.Add(totalTax)
	if req.TotalTTC.Valid {
		totalTTC = req.TotalTTC.Decimal
	}

	status := req.Status
	if status == "" {
		status = LineActive
	}
	if !status.Valid() {
		return LineItem{}, errors.New("unknown line status")
	}

	return LineItem{
		ID:          uuid.New(),
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		SalesUnit:   req.SalesUnit,
		TotalWeight: totalWeight,
		UnitPrice:   unitPrice,
		TotalHT:     totalHT,
		TotalTax:    totalTax,
		TotalTTC:    totalTTC,
		Status:      status,
	}, nil
}
