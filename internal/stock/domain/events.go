package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StockReserved struct {
	ProductID uuid.UUID       `json:"product_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Weight    decimal.Decimal `json:"weight_kg"`
}

type StockReleased struct {
	ProductID uuid.UUID       `json:"product_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Weight    decimal.Decimal `json:"weight_kg"`
}
