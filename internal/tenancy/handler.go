package tenancy

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes company endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	companies, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if companies == nil {
		companies = []Company{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": companies})
}

type createCompanyForm struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=255"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	var form createCompanyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	company, err := h.service.CreateCompany(r.Context(), userID, CreateCompanyInput{Name: form.Name, Slug: form.Slug})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}
