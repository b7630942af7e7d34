package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrClientNotFound      = errors.New("client not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnknownDiscountType = errors.New("unknown discount type")
	ErrNegativeDiscount    = errors.New("discount value must not be negative")
	ErrLinesLocked         = errors.New("line items are frozen once a payment has completed")
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// Order is the aggregate root: header, line items, and the monetary fields
// the final price is derived from. ClientID is nil for guest orders; the
// placing user is always required.
type Order struct {
	ID               uuid.UUID
	Reference        string
	ClientID         *uuid.UUID
	UserID           uuid.UUID
	Status           Status
	OrderDate        time.Time
	DeliveryExpected *time.Time
	DeliveryActual   *time.Time
	TotalHT          decimal.Decimal
	TotalTax         decimal.Decimal
	TotalTTC         decimal.Decimal
	DeliveryPrice    decimal.NullDecimal
	StoragePrice     decimal.NullDecimal
	DiscountType     DiscountType // empty when no discount applies
	DiscountValue    decimal.NullDecimal
	DevisStatus      DevisStatus // empty outside the quote workflow
	FinalPrice       decimal.NullDecimal
	Lines            []LineItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReference builds a unique human-readable order reference.
func NewReference() string {
	return "CMD-" + uuid.NewString()[:8]
}

// LinesTotalTTC sums the line totals; the header TotalTTC is expected to
// match it but the two are persisted independently.
func (o *Order) LinesTotalTTC() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.TotalTTC)
	}
	return sum
}

// RecomputeFinalPrice derives the final price from the TTC total, the
// additional costs, and the discount. Percentage discounts apply to the
// cost-inclusive base; the result is rounded to 2 decimals and floored at
// zero. The computation is a pure function of the order's fields, so
// repeating it with unchanged inputs yields the same price.
func (o *Order) RecomputeFinalPrice() error {
	base := o.TotalTTC
	if o.DeliveryPrice.Valid {
		base = base.Add(o.DeliveryPrice.Decimal)
	}
	if o.StoragePrice.Valid {
		base = base.Add(o.StoragePrice.Decimal)
	}

	final := base
	if o.DiscountType != "" && o.DiscountValue.Valid {
		if !o.DiscountType.Valid() {
			return ErrUnknownDiscountType
		}
		value := o.DiscountValue.Decimal
		if value.IsNegative() {
			return ErrNegativeDiscount
		}
		switch o.DiscountType {
		case DiscountPercentage:
			hundred := decimal.NewFromInt(100)
			final = base.Mul(hundred.Sub(value)).Div(hundred)
		case DiscountFixedAmount:
			final = base.Sub(value)
		}
	}
	if final.IsNegative() {
		final = decimal.Zero
	}

	o.FinalPrice = decimal.NullDecimal{Decimal: final.Round(2), Valid: true}
	return nil
}
