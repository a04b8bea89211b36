package tenancy

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Middleware resolves the {companyID} URL parameter into an active
// membership and stores the company id on the request context. Unknown and
// foreign companies both yield 404.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
			if err != nil {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
				return
			}
			if _, err := service.ResolveMember(r.Context(), userID, companyID); err != nil {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithCompanyID(r.Context(), companyID)))
		})
	}
}
