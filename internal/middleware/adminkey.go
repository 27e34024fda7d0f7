package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/settleco/usdt-ledger/internal/handler"
)

// AdminKey guards operator endpoints with a static X-Admin-Key header.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Key")
			if got == "" {
				handler.RespondAppError(w, handler.ErrMissingAdminKey, nil)
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				handler.RespondAppError(w, handler.ErrInvalidAdminKey, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
