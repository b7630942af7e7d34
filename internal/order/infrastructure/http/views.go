package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polytrade/trading-backend/internal/order/application"
	"github.com/polytrade/trading-backend/internal/order/domain"
	payment "github.com/polytrade/trading-backend/internal/payment/domain"
)

type listResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Monetary fields render as strings with two fractional digits; decimal's
// own marshaling trims trailing zeros, which API consumers must not see.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

type lineView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	SalesUnit   string          `json:"sales_unit"`
	TotalWeight decimal.Decimal `json:"total_weight_kg"`
	UnitPrice   string          `json:"unit_price"`
	TotalHT     string          `json:"total_ht"`
	TotalTax    string          `json:"total_tax"`
	TotalTTC    string          `json:"total_ttc"`
	Status      string          `json:"status"`
}

type paymentView struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type installmentView struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	DueDate     time.Time `json:"due_date"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
}

type orderView struct {
	ID               uuid.UUID         `json:"id"`
	Reference        string            `json:"reference"`
	ClientID         *uuid.UUID        `json:"client_id,omitempty"`
	UserID           uuid.UUID         `json:"user_id"`
	Status           string            `json:"status"`
	OrderDate        time.Time         `json:"order_date"`
	DeliveryExpected *time.Time        `json:"delivery_expected,omitempty"`
	DeliveryActual   *time.Time        `json:"delivery_actual,omitempty"`
	TotalHT          string            `json:"total_ht"`
	TotalTax         string            `json:"total_tax"`
	TotalTTC         string            `json:"total_ttc"`
	DeliveryPrice    *string           `json:"delivery_price"`
	StoragePrice     *string           `json:"storage_price"`
	DiscountType     string            `json:"discount_type,omitempty"`
	DiscountValue    *string           `json:"discount_value"`
	DevisStatus      string            `json:"devis_status,omitempty"`
	FinalPrice       *string           `json:"final_price"`
	Lines            []lineView        `json:"lines"`
	Payments         []paymentView     `json:"payments,omitempty"`
	Installments     []installmentView `json:"installments,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func toOrderHeader(o domain.Order) orderView {
	v := orderView{
		ID:               o.ID,
		Reference:        o.Reference,
		ClientID:         o.ClientID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		OrderDate:        o.OrderDate,
		DeliveryExpected: o.DeliveryExpected,
		DeliveryActual:   o.DeliveryActual,
		TotalHT:          money(o.TotalHT),
		TotalTax:         money(o.TotalTax),
		TotalTTC:         money(o.TotalTTC),
		DeliveryPrice:    nullMoney(o.DeliveryPrice),
		StoragePrice:     nullMoney(o.StoragePrice),
		DiscountType:     string(o.DiscountType),
		DiscountValue:    nullMoney(o.DiscountValue),
		DevisStatus:      string(o.DevisStatus),
		FinalPrice:       nullMoney(o.FinalPrice),
		Lines:            make([]lineView, 0, len(o.Lines)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, lineView{
			ID:          l.ID,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			SalesUnit:   string(l.SalesUnit),
			TotalWeight: l.TotalWeight,
			UnitPrice:   money(l.UnitPrice),
			TotalHT:     money(l.TotalHT),
			TotalTax:    money(l.TotalTax),
			TotalTTC:    money(l.TotalTTC),
			Status:      string(l.Status),
		})
	}
	return v
}

func toOrderView(view application.OrderView) orderView {
	v := toOrderHeader(view.Order)
	for _, p := range view.Payments {
		v.Payments = append(v.Payments, toPaymentView(p))
	}
	for _, i := range view.Installments {
		v.Installments = append(v.Installments, installmentView{
			ID:          i.ID,
			OrderID:     i.OrderID,
			DueDate:     i.DueDate,
			Amount:      money(i.Amount),
			Status:      string(i.Status),
			Description: i.Description,
		})
	}
	return v
}

func toPaymentView(p payment.Payment) paymentView {
	return paymentView{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    money(p.Amount),
		Method:    string(p.Method),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
