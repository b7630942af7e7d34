package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/polytrade/trading-backend/internal/order/application"
	"github.com/polytrade/trading-backend/internal/order/domain"
	payment "github.com/polytrade/trading-backend/internal/payment/domain"
	"github.com/polytrade/trading-backend/internal/transport/httpx"
)

type Handler struct {
	log    *slog.Logger
	svc    *application.Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc *application.Service) *Handler {
	return &Handler{
		log:    log,
		svc:    svc,
		tracer: otel.Tracer("order-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.remove)
			r.Patch("/status", h.updateStatus)
			r.Patch("/additional-costs", h.updateAdditionalCosts)
			r.Patch("/discount", h.updateDiscount)
			r.Patch("/devis", h.updateDevisStatus)
		})
	})
}

type lineRequest struct {
	ProductID uuid.UUID           `json:"product_id"`
	Quantity  decimal.Decimal     `json:"quantity"`
	SalesUnit string              `json:"sales_unit"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	TotalHT   decimal.NullDecimal `json:"total_ht"`
	TotalTax  decimal.NullDecimal `json:"total_tax"`
	TotalTTC  decimal.NullDecimal `json:"total_ttc"`
	Status    string              `json:"status"`
}

func (l lineRequest) toDomain() domain.LineRequest {
	return domain.LineRequest{
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		SalesUnit: domain.SalesUnit(l.SalesUnit),
		UnitPrice: l.UnitPrice,
		TotalHT:   l.TotalHT,
		TotalTax:  l.TotalTax,
		TotalTTC:  l.TotalTTC,
		Status:    domain.LineStatus(l.Status),
	}
}

type createOrderRequest struct {
	ClientID         *uuid.UUID          `json:"client_id"`
	UserID           uuid.UUID           `json:"user_id"`
	Reference        string              `json:"reference"`
	OrderDate        *time.Time          `json:"order_date"`
	DeliveryExpected *time.Time          `json:"delivery_expected"`
	Status           string              `json:"status"`
	Lines            []lineRequest       `json:"lines"`
	TotalHT          decimal.NullDecimal `json:"total_ht"`
	TotalTax         decimal.NullDecimal `json:"total_tax"`
	TotalTTC         decimal.NullDecimal `json:"total_ttc"`
	SeedPayment      bool                `json:"seed_payment"`
	PaymentMethod    string              `json:"payment_method"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.create")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		httpx.BadRequest(w, "user_id is required")
		return
	}
	if len(req.Lines) == 0 {
		httpx.BadRequest(w, "at least one line is required")
		return
	}

	in := application.CreateOrderInput{
		ClientID:         req.ClientID,
		UserID:           req.UserID,
		Reference:        req.Reference,
		DeliveryExpected: req.DeliveryExpected,
		InitialStatus:    domain.Status(req.Status),
		TotalHT:          req.TotalHT,
		TotalTax:         req.TotalTax,
		TotalTTC:         req.TotalTTC,
		SeedPayment:      req.SeedPayment,
		PaymentMethod:    payment.Method(req.PaymentMethod),
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, l.toDomain())
	}

	view, err := h.svc.CreateOrder(ctx, in)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, toOrderView(view))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.list")
	defer span.End()

	page, pageSize := httpx.Pagination(r)
	orders, total, err := h.svc.List(ctx, page, pageSize)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	items := make([]orderView, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderHeader(o))
	}
	httpx.Respond(w, http.StatusOK, listResponse[orderView]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.get")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Get(ctx, id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

type updateOrderRequest struct {
	ClientID         *uuid.UUID          `json:"client_id"`
	UserID           *uuid.UUID          `json:"user_id"`
	Reference        *string             `json:"reference"`
	OrderDate        *time.Time          `json:"order_date"`
	DeliveryExpected *time.Time          `json:"delivery_expected"`
	DeliveryActual   *time.Time          `json:"delivery_actual"`
	TotalHT          decimal.NullDecimal `json:"total_ht"`
	TotalTax         decimal.NullDecimal `json:"total_tax"`
	TotalTTC         decimal.NullDecimal `json:"total_ttc"`
	Lines            []lineRequest       `json:"lines"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	in := application.UpdateOrderInput{
		ClientID:         req.ClientID,
		UserID:           req.UserID,
		Reference:        req.Reference,
		OrderDate:        req.OrderDate,
		DeliveryExpected: req.DeliveryExpected,
		DeliveryActual:   req.DeliveryActual,
		TotalHT:          req.TotalHT,
		TotalTax:         req.TotalTax,
		TotalTTC:         req.TotalTTC,
	}
	if req.Lines != nil {
		in.Lines = make([]domain.LineRequest, 0, len(req.Lines))
		for _, l := range req.Lines {
			in.Lines = append(in.Lines, l.toDomain())
		}
	}

	view, err := h.svc.Update(ctx, id, in)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.remove")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(ctx, id); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update_status")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		httpx.BadRequest(w, "status is required")
		return
	}

	view, err := h.svc.UpdateStatus(ctx, id, domain.Status(req.Status))
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

func (h *Handler) updateAdditionalCosts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update_additional_costs")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req struct {
		DeliveryPrice decimal.NullDecimal `json:"delivery_price"`
		StoragePrice  decimal.NullDecimal `json:"storage_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	view, err := h.svc.UpdateAdditionalCosts(ctx, id, application.AdditionalCostsInput{
		DeliveryPrice: req.DeliveryPrice,
		StoragePrice:  req.StoragePrice,
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update_discount")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req struct {
		Type  string          `json:"type"`
		Value decimal.Decimal `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	view, err := h.svc.UpdateDiscount(ctx, id, domain.DiscountType(req.Type), req.Value)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

func (h *Handler) updateDevisStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update_devis_status")
	defer span.End()

	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req struct {
		DevisStatus string `json:"devis_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DevisStatus == "" {
		httpx.BadRequest(w, "devis_status is required")
		return
	}

	view, err := h.svc.UpdateDevisStatus(ctx, id, domain.DevisStatus(req.DevisStatus))
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toOrderView(view))
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.BadRequest(w, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}
