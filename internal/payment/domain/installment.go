package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInstallmentNotFound = errors.New("payment installment not found")

// Installment is one expected partial payment in an order's schedule. The
// schedule is an independent ledger: nothing reconciles it against actual
// Payment records.
type Installment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	DueDate     time.Time
	Amount      decimal.Decimal
	Status      Status
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
