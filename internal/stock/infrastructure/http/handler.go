package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/polytrade/trading-backend/internal/stock/application"
	"github.com/polytrade/trading-backend/internal/stock/domain"
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
		tracer: otel.Tracer("stock-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/thresholds", func(r chi.Router) {
		r.Get("/", h.list)
		r.Route("/{productID}", func(r chi.Router) {
			r.Post("/", h.create)
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.remove)
		})
	})
	r.Get("/stock/{productID}/check", h.check)
}

type thresholdRequest struct {
	Minimum decimal.Decimal `json:"minimum_threshold"`
	Reorder decimal.Decimal `json:"reorder_threshold"`
}

type thresholdView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Minimum   decimal.Decimal `json:"minimum_threshold"`
	Reorder   decimal.Decimal `json:"reorder_threshold"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toThresholdView(t domain.Threshold) thresholdView {
	return thresholdView{
		ProductID: t.ProductID,
		Minimum:   t.Minimum,
		Reorder:   t.Reorder,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.create_thresholds")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	t, err := h.svc.CreateThresholds(ctx, id, req.Minimum, req.Reorder)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, toThresholdView(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.get_thresholds")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetThreshold(ctx, id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toThresholdView(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.list_thresholds")
	defer span.End()

	page, pageSize := httpx.Pagination(r)
	thresholds, total, err := h.svc.ListThresholds(ctx, page, pageSize)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}

	items := make([]thresholdView, 0, len(thresholds))
	for _, t := range thresholds {
		items = append(items, toThresholdView(t))
	}
	httpx.Respond(w, http.StatusOK, map[string]any{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.update_thresholds")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	t, err := h.svc.UpdateThresholds(ctx, id, req.Minimum, req.Reorder)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toThresholdView(t))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.delete_thresholds")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteThreshold(ctx, id); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusNoContent, nil)
}

// check probes availability for a weight without reserving anything. The
// verdict is advisory: reservation at order time remains the authority.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "stock.check")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	weight, err := decimal.NewFromString(r.URL.Query().Get("weight_kg"))
	if err != nil || !weight.IsPositive() {
		httpx.BadRequest(w, "weight_kg must be a positive number")
		return
	}

	err = h.svc.CheckStock(ctx, id, weight)
	var insufficient *domain.InsufficientStockError
	switch {
	case err == nil:
		httpx.Respond(w, http.StatusOK, map[string]any{"available": true})
	case errors.As(err, &insufficient):
		httpx.Respond(w, http.StatusOK, map[string]any{
			"available":     false,
			"available_qty": insufficient.Available,
			"shortfall":     insufficient.Shortfall(),
		})
	default:
		httpx.Error(w, h.log, err)
	}
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.BadRequest(w, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}
