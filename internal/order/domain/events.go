package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderCreated struct {
	OrderID   uuid.UUID       `json:"order_id"`
	Reference string          `json:"reference"`
	ClientID  *uuid.UUID      `json:"client_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	TotalTTC  decimal.Decimal `json:"total_ttc"`
	Lines     []LineCreated   `json:"lines"`
}

type LineCreated struct {
	ProductID   uuid.UUID       `json:"product_id"`
	SalesUnit   SalesUnit       `json:"sales_unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalWeight decimal.Decimal `json:"total_weight_kg"`
}

type OrderStatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
}

type OrderCancelled struct {
	OrderID   uuid.UUID `json:"order_id"`
	Reference string    `json:"reference"`
}
