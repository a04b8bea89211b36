package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes the audit trail within a company scope.
type Handler struct {
	logger     *slog.Logger
	repo       Repository
	middleware rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, middleware rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, middleware: middleware}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionCompanyManage))
		r.Get("/", h.handleList)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	filter := ListFilter{
		Action: r.URL.Query().Get("action"),
		Entity: r.URL.Query().Get("entity"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	events, err := h.repo.ListEvents(r.Context(), companyID, filter)
	if err != nil {
		h.logger.Error("list audit events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}
