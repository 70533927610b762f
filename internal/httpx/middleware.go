package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const ctxKeyIdempotency ctxKey = "idempotency-key"

// RequireBearer: auth service-to-service sederhana. Token kosong = terima
// Bearer apa saja (mode dev).
func RequireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized,
					map[string]string{"message": "Authorization token missing or invalid."})
				return
			}
			if token != "" && strings.TrimPrefix(h, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized,
					map[string]string{"message": "Authorization token missing or invalid."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdempotencyKey: confirm wajib bawa key; tanpa key -> 400.
func RequireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Idempotency-Key")
		if key == "" {
			key = r.Header.Get("Idempotency-Key")
		}
		if key == "" {
			writeJSON(w, http.StatusBadRequest,
				map[string]string{"message": "Missing Idempotency-Key header."})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdempotency, key)))
	})
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(ctxKeyIdempotency).(string)
	return key
}
