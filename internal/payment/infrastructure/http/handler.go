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

	"github.com/polytrade/trading-backend/internal/payment/application"
	"github.com/polytrade/trading-backend/internal/payment/domain"
	"github.com/polytrade/trading-backend/internal/transport/httpx"
)

type Handler struct {
	log          *slog.Logger
	payments     *application.Service
	installments *application.InstallmentService
	tracer       trace.Tracer
}

func NewHandler(log *slog.Logger, payments *application.Service, installments *application.InstallmentService) *Handler {
	return &Handler{
		log:          log,
		payments:     payments,
		installments: installments,
		tracer:       otel.Tracer("payment-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{paymentID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.remove)
		})
	})
	r.Route("/installments", func(r chi.Router) {
		r.Post("/", h.createInstallment)
		r.Get("/", h.listInstallmentsByOrder)
		r.Route("/{installmentID}", func(r chi.Router) {
			r.Get("/", h.getInstallment)
			r.Put("/", h.updateInstallment)
			r.Delete("/", h.removeInstallment)
		})
	})
}

type paymentRequest struct {
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"`
	Status  string          `json:"status"`
}

func (p paymentRequest) toInput() application.PaymentInput {
	return application.PaymentInput{
		OrderID: p.OrderID,
		UserID:  p.UserID,
		Amount:  p.Amount,
		Method:  domain.Method(p.Method),
		Status:  domain.Status(p.Status),
	}
}

// Amounts render with two fractional digits so the API never trims
// trailing zeros off a monetary value.
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

func toPaymentView(p domain.Payment) paymentView {
	return paymentView{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    p.Amount.StringFixed(2),
		Method:    string(p.Method),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.create")
	defer span.End()

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	p, err := h.payments.Add(ctx, req.toInput())
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, toPaymentView(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.get")
	defer span.End()

	id, ok := parseID(w, r, "paymentID", "invalid payment id")
	if !ok {
		return
	}
	p, err := h.payments.Get(ctx, id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toPaymentView(p))
}

// list returns the paged ledger, or the payments of one order when the
// order_id query parameter is present.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.list")
	defer span.End()

	if r.URL.Query().Get("order_id") != "" {
		h.listByOrder(w, r.WithContext(ctx))
		return
	}

	page, pageSize := httpx.Pagination(r)
	pays, total, err := h.payments.List(ctx, page, pageSize)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	items := make([]paymentView, 0, len(pays))
	for _, p := range pays {
		items = append(items, toPaymentView(p))
	}
	httpx.Respond(w, http.StatusOK, map[string]any{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.list_by_order")
	defer span.End()

	orderID, err := uuid.Parse(r.URL.Query().Get("order_id"))
	if err != nil {
		httpx.BadRequest(w, "invalid order id")
		return
	}
	pays, err := h.payments.ListByOrder(ctx, orderID)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	items := make([]paymentView, 0, len(pays))
	for _, p := range pays {
		items = append(items, toPaymentView(p))
	}
	httpx.Respond(w, http.StatusOK, items)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.update")
	defer span.End()

	id, ok := parseID(w, r, "paymentID", "invalid payment id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	p, err := h.payments.Modify(ctx, id, req.toInput())
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toPaymentView(p))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.delete")
	defer span.End()

	id, ok := parseID(w, r, "paymentID", "invalid payment id")
	if !ok {
		return
	}
	if err := h.payments.Delete(ctx, id); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusNoContent, nil)
}

type installmentRequest struct {
	OrderID     uuid.UUID       `json:"order_id"`
	DueDate     time.Time       `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
}

type installmentView struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	DueDate     time.Time `json:"due_date"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toInstallmentView(i domain.Installment) installmentView {
	return installmentView{
		ID:          i.ID,
		OrderID:     i.OrderID,
		DueDate:     i.DueDate,
		Amount:      i.Amount.StringFixed(2),
		Status:      string(i.Status),
		Description: i.Description,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func (h *Handler) createInstallment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "installment.create")
	defer span.End()

	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	inst, err := h.installments.Create(ctx, application.InstallmentInput{
		OrderID:     req.OrderID,
		DueDate:     req.DueDate,
		Amount:      req.Amount,
		Status:      domain.Status(req.Status),
		Description: req.Description,
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, toInstallmentView(inst))
}

func (h *Handler) getInstallment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "installment.get")
	defer span.End()

	id, ok := parseID(w, r, "installmentID", "invalid installment id")
	if !ok {
		return
	}
	inst, err := h.installments.Get(ctx, id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toInstallmentView(inst))
}

func (h *Handler) updateInstallment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "installment.update")
	defer span.End()

	id, ok := parseID(w, r, "installmentID", "invalid installment id")
	if !ok {
		return
	}
	var req struct {
		DueDate     *time.Time          `json:"due_date"`
		Amount      decimal.NullDecimal `json:"amount"`
		Status      string              `json:"status"`
		Description *string             `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	inst, err := h.installments.Update(ctx, id, application.InstallmentUpdate{
		DueDate:     req.DueDate,
		Amount:      req.Amount,
		Status:      domain.Status(req.Status),
		Description: req.Description,
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toInstallmentView(inst))
}

func (h *Handler) removeInstallment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "installment.delete")
	defer span.End()

	id, ok := parseID(w, r, "installmentID", "invalid installment id")
	if !ok {
		return
	}
	if err := h.installments.Delete(ctx, id); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) listInstallmentsByOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "installment.list_by_order")
	defer span.End()

	orderID, err := uuid.Parse(r.URL.Query().Get("order_id"))
	if err != nil {
		httpx.BadRequest(w, "invalid order id")
		return
	}
	insts, err := h.installments.ListByOrder(ctx, orderID)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	items := make([]installmentView, 0, len(insts))
	for _, i := range insts {
		items = append(items, toInstallmentView(i))
	}
	httpx.Respond(w, http.StatusOK, items)
}

func parseID(w http.ResponseWriter, r *http.Request, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.BadRequest(w, msg)
		return uuid.Nil, false
	}
	return id, true
}
