package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes role and permission endpoints within a company scope.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, middleware Middleware) *Handler {
	return &Handler{logger: logger, service: service, middleware: middleware}
}

// MountRoutes registers rbac routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(PermissionRBACManage))
		r.Get("/roles", h.handleListRoles)
		r.Post("/assignments", h.handleAssign)
		r.Delete("/assignments", h.handleRevoke)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	grants, err := h.service.GrantsFor(r.Context(), userID, companyID)
	if err != nil {
		h.logger.Error("rbac grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grants)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	roles, err := h.service.ListRoles(r.Context(), companyID)
	if err != nil {
		h.logger.Error("rbac list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type assignmentForm struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

func (f assignmentForm) parse() (int64, uuid.UUID, error) {
	userID, err := strconv.ParseInt(f.UserID, 10, 64)
	if err != nil {
		return 0, uuid.Nil, err
	}
	roleID, err := uuid.Parse(f.RoleID)
	if err != nil {
		return 0, uuid.Nil, err
	}
	return userID, roleID, nil
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	var form assignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	userID, roleID, err := form.parse()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id and role_id are required")
		return
	}
	if err := h.service.AssignRole(r.Context(), companyID, userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	var form assignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	userID, roleID, err := form.parse()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id and role_id are required")
		return
	}
	if err := h.service.RevokeRole(r.Context(), companyID, userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
