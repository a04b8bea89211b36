package contacts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes contact endpoints within a company scope.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware rbac.Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, middleware rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, middleware: middleware, validator: validator.New()}
}

// MountRoutes registers contact routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/", h.handleList)
		r.Get("/{contactID}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
		r.Post("/", h.handleCreate)
		r.Put("/{contactID}", h.handleUpdate)
	})
}

type contactForm struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=customer vendor both"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=64"`
	Address  string `json:"address"`
	TaxID    string `json:"tax_id" validate:"omitempty,max=64"`
	IsActive *bool  `json:"is_active"`
}

func (f contactForm) input() Input {
	return Input{
		Kind:     Kind(f.Kind),
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		Address:  f.Address,
		TaxID:    f.TaxID,
		IsActive: f.IsActive,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	contacts, err := h.service.List(r.Context(), companyID, Kind(r.URL.Query().Get("kind")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "contactID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "contact not found")
		return
	}
	contact, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contact)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form contactForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	contact, err := h.service.Create(r.Context(), companyID, actorID, form.input())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contact)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "contactID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "contact not found")
		return
	}
	var form contactForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	contact, err := h.service.Update(r.Context(), companyID, id, actorID, form.input())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contact)
}
