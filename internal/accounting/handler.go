package accounting

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

// Handler exposes chart-of-accounts endpoints within a company scope.
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

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/", h.handleList)
		r.Get("/{accountID}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
		r.Post("/", h.handleCreate)
		r.Put("/{accountID}", h.handleUpdate)
		r.Delete("/{accountID}", h.handleDelete)
	})
}

type accountForm struct {
	Code          string  `json:"code" validate:"required,max=64"`
	Name          string  `json:"name" validate:"required,max=255"`
	Type          string  `json:"type" validate:"required,oneof=asset liability equity income expense"`
	NormalBalance string  `json:"normal_balance" validate:"omitempty,oneof=debit credit"`
	ParentID      *string `json:"parent_id"`
	IsActive      *bool   `json:"is_active"`
}

func (f accountForm) input() (AccountInput, error) {
	input := AccountInput{
		Code:          f.Code,
		Name:          f.Name,
		Type:          AccountType(f.Type),
		NormalBalance: NormalBalance(f.NormalBalance),
		IsActive:      f.IsActive,
	}
	if f.ParentID != nil && *f.ParentID != "" {
		parentID, err := uuid.Parse(*f.ParentID)
		if err != nil {
			return AccountInput{}, err
		}
		input.ParentID = &parentID
	}
	return input, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	accounts, err := h.service.ListAccounts(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []Account{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
		return
	}
	account, err := h.service.GetAccount(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form accountForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := form.input()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_id must be a UUID")
		return
	}
	account, err := h.service.CreateAccount(r.Context(), companyID, actorID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
		return
	}
	var form accountForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := form.input()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_id must be a UUID")
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), companyID, id, actorID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), companyID, id, actorID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
