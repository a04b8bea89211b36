package journals

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

// Handler exposes journal endpoints within a company scope.
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

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/", h.handleList)
		r.Get("/{entryID}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
		r.Post("/", h.handleCreate)
		r.Put("/{entryID}/lines", h.handleReplaceLines)
		r.Post("/{entryID}/post", h.handlePost)
		r.Post("/{entryID}/void", h.handleVoid)
	})
}

func (h *Handler) entryID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	return id, err == nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		if start, err := parseDate(raw); err == nil {
			filter.StartDate = &start
		}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		if end, err := parseDate(raw); err == nil {
			filter.EndDate = &end
		}
	}
	entries, err := h.service.ListEntries(r.Context(), companyID, filter)
	if err != nil {
		h.logger.Error("list journal entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "journal entry not found")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.ListLines(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryResponse{Entry: entry, Lines: lines})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form createEntryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryDate, err := parseDate(form.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_date must be YYYY-MM-DD")
		return
	}
	lines, err := parseLineForms(form.Lines)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), companyID, actorID, CreateEntryInput{
		EntryDate:   entryDate,
		Description: form.Description,
		Lines:       lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type replaceLinesForm struct {
	Lines []lineForm `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleReplaceLines(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "journal entry not found")
		return
	}
	var form replaceLinesForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs, err := parseLineForms(form.Lines)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, lines, err := h.service.ReplaceEntryLines(r.Context(), companyID, id, actorID, inputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryResponse{Entry: entry, Lines: lines})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "journal entry not found")
		return
	}
	entry, err := h.service.PostEntry(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := h.entryID(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "journal entry not found")
		return
	}
	entry, reversal, err := h.service.VoidEntry(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voidResponse{Entry: entry, Reversal: reversal})
}
