package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

const HeaderKey = "Idempotency-Key"

// Deduper claims request keys atomically. *Store satisfies it.
type Deduper interface {
	Key(scope, key string) string
	Seen(ctx context.Context, key string) (bool, error)
}

// Middleware rejects a mutating request whose Idempotency-Key has already
// been claimed, answering 409 before the handler runs. Requests without the
// header pass through untouched, and a failing store fails open.
func Middleware(log *slog.Logger, store Deduper, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			seen, err := store.Seen(r.Context(), store.Key(scope, key))
			if err != nil {
				log.Error("idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "idempotency_key", key)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"duplicate request"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
