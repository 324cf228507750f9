package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/pkg/ctxutil"
)

const RequestIDHeader = "X-Request-Id"

// RequestID propagates X-Request-Id, generating one when the caller sent none.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			ctx := ctxutil.WithRequestID(r.Context(), id)
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
