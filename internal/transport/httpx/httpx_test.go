package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdomain "github.com/polytrade/trading-backend/internal/order/domain"
	stockdomain "github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/polytrade/trading-backend/pkg/logging"
)

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing order", orderdomain.ErrOrderNotFound, http.StatusNotFound},
		{"missing thresholds", stockdomain.ErrThresholdNotFound, http.StatusNotFound},
		{"unknown client", orderdomain.ErrClientNotFound, http.StatusNotFound},
		{"unknown user", orderdomain.ErrUserNotFound, http.StatusNotFound},
		{"invalid transition", orderdomain.ErrInvalidTransition, http.StatusBadRequest},
		{"non cancelable", orderdomain.ErrNonCancelable, http.StatusBadRequest},
		{"lines locked", orderdomain.ErrLinesLocked, http.StatusBadRequest},
		{"invalid thresholds", stockdomain.ErrInvalidThresholds, http.StatusBadRequest},
		{"duplicate thresholds", stockdomain.ErrThresholdExists, http.StatusConflict},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError},
	}

	log := logging.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, log, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logging.New(), errors.New("pq: connection refused"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
}

func TestErrorReportsShortfall(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logging.New(), &stockdomain.InsufficientStockError{
		ProductID: uuid.New(),
		Available: decimal.NewFromInt(300),
		Requested: decimal.NewFromInt(1000),
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "700", body["shortfall"])
}

func TestPagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders?page=3&page_size=50", nil)
	page, size := Pagination(r)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	page, size = Pagination(r)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	r = httptest.NewRequest(http.MethodGet, "/orders?page=-1&page_size=9999", nil)
	page, size = Pagination(r)
	assert.Equal(t, 1, page, "negative page falls back to the default")
	assert.Equal(t, 20, size, "oversized page_size falls back to the default")
}
