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

	"github.com/polytrade/trading-backend/internal/catalog/application"
	"github.com/polytrade/trading-backend/internal/catalog/domain"
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
		tracer: otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.archive)
		})
	})
}

// Prices render with two fractional digits; quantities keep their full
// precision.
type productView struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	SellPrice    string          `json:"sell_price"`
	BuyPrice     *string         `json:"buy_price"`
	AvailableQty decimal.Decimal `json:"available_qty_kg"`
	SoldQty      decimal.Decimal `json:"sold_qty_kg"`
	StockStatus  string          `json:"stock_status"`
	Archived     bool            `json:"archived"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toProductView(p domain.Product) productView {
	var buyPrice *string
	if p.BuyPrice.Valid {
		s := p.BuyPrice.Decimal.StringFixed(2)
		buyPrice = &s
	}
	return productView{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		SellPrice:    p.SellPrice.StringFixed(2),
		BuyPrice:     buyPrice,
		AvailableQty: p.AvailableQty,
		SoldQty:      p.SoldQty,
		StockStatus:  string(p.StockStatus),
		Archived:     p.Archived,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.create_product")
	defer span.End()

	var req struct {
		Name         string              `json:"name"`
		SKU          string              `json:"sku"`
		SellPrice    decimal.Decimal     `json:"sell_price"`
		BuyPrice     decimal.NullDecimal `json:"buy_price"`
		AvailableQty decimal.Decimal     `json:"available_qty_kg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	p, err := h.svc.Create(ctx, application.CreateProductInput{
		Name:         req.Name,
		SKU:          req.SKU,
		SellPrice:    req.SellPrice,
		BuyPrice:     req.BuyPrice,
		AvailableQty: req.AvailableQty,
	})
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, toProductView(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.get_product")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(ctx, id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusOK, toProductView(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.list_products")
	defer span.End()

	page, pageSize := httpx.Pagination(r)
	products, total, err := h.svc.List(ctx, page, pageSize)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	items := make([]productView, 0, len(products))
	for _, p := range products {
		items = append(items, toProductView(p))
	}
	httpx.Respond(w, http.StatusOK, map[string]any{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.archive_product")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Archive(ctx, id); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Respond(w, http.StatusNoContent, nil)
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.BadRequest(w, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}
