package idempotency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polytrade/trading-backend/pkg/logging"
)

type fakeDeduper struct {
	claimed map[string]bool
	err     error
}

func (f *fakeDeduper) Key(scope, key string) string { return "idem:" + scope + ":" + key }

func (f *fakeDeduper) Seen(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	dup := f.claimed[key]
	f.claimed[key] = true
	return dup, nil
}

func newHandler(store *fakeDeduper, hits *int) http.Handler {
	mw := Middleware(logging.New(), store, "orders")
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusCreated)
	}))
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsDuplicateKey(t *testing.T) {
	hits := 0
	h := newHandler(&fakeDeduper{claimed: map[string]bool{}}, &hits)

	assert.Equal(t, http.StatusCreated, post(h, "abc-123").Code)

	rec := post(h, "abc-123")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"duplicate request"}`, rec.Body.String())
	assert.Equal(t, 1, hits, "the handler must not run for the duplicate")
}

func TestMiddlewarePassesThroughWithoutHeader(t *testing.T) {
	hits := 0
	h := newHandler(&fakeDeduper{claimed: map[string]bool{}}, &hits)

	assert.Equal(t, http.StatusCreated, post(h, "").Code)
	assert.Equal(t, http.StatusCreated, post(h, "").Code)
	assert.Equal(t, 2, hits)
}

func TestMiddlewareFailsOpenOnStoreError(t *testing.T) {
	hits := 0
	h := newHandler(&fakeDeduper{err: errors.New("redis down")}, &hits)

	assert.Equal(t, http.StatusCreated, post(h, "abc-123").Code)
	assert.Equal(t, 1, hits)
}
