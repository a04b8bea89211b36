package auth

import (
	"net/http"
	"strings"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Middleware authenticates bearer tokens and stores the user id on the
// request context.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
				return
			}
			userID, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token invalid or expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
		})
	}
}
