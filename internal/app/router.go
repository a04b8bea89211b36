package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/observability"
)

// RouteMounter is implemented by domain HTTP handlers.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	// AuthMiddleware authenticates bearer tokens and stores the user id on
	// the request context.
	AuthMiddleware func(http.Handler) http.Handler
	// TenantMiddleware resolves {companyID} to an active membership and
	// hides foreign companies behind 404.
	TenantMiddleware func(http.Handler) http.Handler

	AuthHandler      RouteMounter
	CompanyHandler   RouteMounter
	ContactsHandler  RouteMounter
	AccountsHandler  RouteMounter
	JournalsHandler  RouteMounter
	SalesHandler     RouteMounter
	PurchasesHandler RouteMounter
	BankingHandler   RouteMounter
	ReportsHandler   RouteMounter
	AuditHandler     RouteMounter
	RBACHandler      RouteMounter
	JobHandler       RouteMounter
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			if params.AuthMiddleware != nil {
				r.Use(params.AuthMiddleware)
			}
			if params.CompanyHandler != nil {
				r.Route("/companies", params.CompanyHandler.MountRoutes)
			}

			r.Route("/companies/{companyID}", func(r chi.Router) {
				if params.TenantMiddleware != nil {
					r.Use(params.TenantMiddleware)
				}
				if params.ContactsHandler != nil {
					r.Route("/contacts", params.ContactsHandler.MountRoutes)
				}
				if params.AccountsHandler != nil {
					r.Route("/accounts", params.AccountsHandler.MountRoutes)
				}
				if params.JournalsHandler != nil {
					r.Route("/journals", params.JournalsHandler.MountRoutes)
				}
				if params.SalesHandler != nil {
					r.Route("/sales", params.SalesHandler.MountRoutes)
				}
				if params.PurchasesHandler != nil {
					r.Route("/purchases", params.PurchasesHandler.MountRoutes)
				}
				if params.BankingHandler != nil {
					r.Route("/banking", params.BankingHandler.MountRoutes)
				}
				if params.ReportsHandler != nil {
					r.Route("/reports", params.ReportsHandler.MountRoutes)
				}
				if params.AuditHandler != nil {
					r.Route("/audit", params.AuditHandler.MountRoutes)
				}
				if params.RBACHandler != nil {
					r.Route("/rbac", params.RBACHandler.MountRoutes)
				}
			})
		})
	})

	return r
}
