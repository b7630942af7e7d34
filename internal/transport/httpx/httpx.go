package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	catalogdomain "github.com/polytrade/trading-backend/internal/catalog/domain"
	orderdomain "github.com/polytrade/trading-backend/internal/order/domain"
	paymentdomain "github.com/polytrade/trading-backend/internal/payment/domain"
	stockdomain "github.com/polytrade/trading-backend/internal/stock/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Shortfall string `json:"shortfall,omitempty"`
}

// Respond writes v as JSON with the given status. A nil v writes only the
// status line.
func Respond(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps domain errors onto HTTP statuses. Anything unmapped is a 500
// and gets logged with its real cause; the client only sees a generic body.
func Error(w http.ResponseWriter, log *slog.Logger, err error) {
	var insufficient *stockdomain.InsufficientStockError
	if errors.As(err, &insufficient) {
		Respond(w, http.StatusBadRequest, errorResponse{
			Error:     insufficient.Error(),
			Shortfall: insufficient.Shortfall().String(),
		})
		return
	}

	switch {
	case isMissing(err):
		Respond(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case isConflict(err):
		Respond(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case isInvalid(err):
		Respond(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Error("request failed", "err", err)
		Respond(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// BadRequest reports a request decoding or validation failure.
func BadRequest(w http.ResponseWriter, msg string) {
	Respond(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// isMissing covers every lookup of a row that does not exist, whether the
// URL names it or a request body references it.
func isMissing(err error) bool {
	return errors.Is(err, orderdomain.ErrOrderNotFound) ||
		errors.Is(err, orderdomain.ErrClientNotFound) ||
		errors.Is(err, orderdomain.ErrUserNotFound) ||
		errors.Is(err, catalogdomain.ErrProductNotFound) ||
		errors.Is(err, stockdomain.ErrThresholdNotFound) ||
		errors.Is(err, paymentdomain.ErrPaymentNotFound) ||
		errors.Is(err, paymentdomain.ErrInstallmentNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, stockdomain.ErrThresholdExists)
}

func isInvalid(err error) bool {
	return errors.Is(err, orderdomain.ErrInvalidTransition) ||
		errors.Is(err, orderdomain.ErrNonCancelable) ||
		errors.Is(err, orderdomain.ErrUnknownStatus) ||
		errors.Is(err, orderdomain.ErrUnknownSalesUnit) ||
		errors.Is(err, orderdomain.ErrUnknownDiscountType) ||
		errors.Is(err, orderdomain.ErrNegativeDiscount) ||
		errors.Is(err, orderdomain.ErrLinesLocked) ||
		errors.Is(err, stockdomain.ErrInvalidThresholds) ||
		errors.Is(err, stockdomain.ErrInsufficientStock)
}

// Pagination reads page and page_size query parameters with sane defaults.
func Pagination(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}
