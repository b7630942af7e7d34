package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUnknownMethod   = errors.New("unknown payment method")
	ErrUnknownStatus   = errors.New("unknown payment status")
	ErrInvalidAmount   = errors.New("payment amount must be positive")
)

type Method string

const (
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodCheque       Method = "CHEQUE"
)

func (m Method) Valid() bool {
	return m == MethodBankTransfer || m == MethodCheque
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Payment records an attempt to settle part of an order. It tracks intent
// and outcome only; no money moves through this system.
type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Method    Method
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
