package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	user, pair, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type refreshForm struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var form refreshForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	pair, err := h.service.Refresh(r.Context(), form.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrTokenInvalid) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "refresh token invalid or expired")
			return
		}
		h.logger.Error("refresh token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var form refreshForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if form.RefreshToken != "" {
		if err := h.service.Logout(r.Context(), form.RefreshToken); err != nil {
			h.logger.Warn("revoke refresh token", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Error()
	}
	return err.Error()
}
