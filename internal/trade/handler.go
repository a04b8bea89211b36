package trade

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/idempotency"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// HandlerPaths names the URL segments of one side. They double as the
// idempotency scope prefixes.
type HandlerPaths struct {
	DocSlug        string
	SettlementSlug string
}

// Handler exposes one side of the trade engine over HTTP. Settlement
// creation and posting run behind the idempotency guard.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	guard      *idempotency.Guard
	middleware rbac.Middleware
	validator  *validator.Validate
	paths      HandlerPaths
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard *idempotency.Guard, middleware rbac.Middleware, paths HandlerPaths) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		middleware: middleware,
		validator:  validator.New(),
		paths:      paths,
	}
}

// MountRoutes registers document, settlement, and aging routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/"+h.paths.DocSlug, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
			r.Get("/", h.handleListDocs)
			r.Get("/{docID}", h.handleGetDoc)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
			r.Post("/", h.handleCreateDoc)
			r.Put("/{docID}/lines", h.handleReplaceDocLines)
			r.Post("/{docID}/post", h.handlePostDoc)
			r.Post("/{docID}/void", h.handleVoidDoc)
		})
	})
	r.Route("/"+h.paths.SettlementSlug, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
			r.Get("/", h.handleListSettlements)
			r.Get("/{settlementID}", h.handleGetSettlement)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
			r.Post("/", h.handleCreateSettlement)
			r.Put("/{settlementID}/allocations", h.handleReplaceAllocations)
			r.Post("/{settlementID}/post", h.handlePostSettlement)
			r.Post("/{settlementID}/void", h.handleVoidSettlement)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/aging", h.handleAging)
	})
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func (h *Handler) handleListDocs(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	filter := DocFilter{Status: DocStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("contact_id"); raw != "" {
		if contactID, err := uuid.Parse(raw); err == nil {
			filter.ContactID = &contactID
		}
	}
	docs, err := h.service.ListDocs(r.Context(), companyID, filter)
	if err != nil {
		h.logger.Error("list docs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if docs == nil {
		docs = []Doc{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{h.paths.DocSlug: docs})
}

func (h *Handler) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "docID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.DocNoun+" not found")
		return
	}
	doc, err := h.service.GetDoc(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.ListDocLines(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docResponse{Doc: doc, Lines: lines})
}

func (h *Handler) handleCreateDoc(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form docForm
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
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.CreateDoc(r.Context(), companyID, actorID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

type replaceDocLinesForm struct {
	Lines []docLineForm `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleReplaceDocLines(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "docID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.DocNoun+" not found")
		return
	}
	var form replaceDocLinesForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs, err := parseDocLineForms(form.Lines)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, lines, err := h.service.ReplaceDocLines(r.Context(), companyID, id, actorID, inputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docResponse{Doc: doc, Lines: lines})
}

func (h *Handler) handlePostDoc(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "docID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.DocNoun+" not found")
		return
	}
	doc, err := h.service.PostDoc(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleVoidDoc(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "docID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.DocNoun+" not found")
		return
	}
	doc, err := h.service.VoidDoc(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	settlements, err := h.service.ListSettlements(r.Context(), companyID, 0)
	if err != nil {
		h.logger.Error("list settlements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if settlements == nil {
		settlements = []Settlement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{h.paths.SettlementSlug: settlements})
}

func (h *Handler) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "settlementID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.SettlementNoun+" not found")
		return
	}
	settlement, err := h.service.GetSettlement(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	allocs, err := h.service.ListAllocations(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlementResponse{Settlement: settlement, Allocations: allocs})
}

// handleCreateSettlement runs behind the idempotency guard: retried requests
// with the same Idempotency-Key replay the first response.
func (h *Handler) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	scope := h.paths.SettlementSlug + ".create"
	h.guard.Execute(w, r, companyID, scope, func(body []byte) (any, int, error) {
		var form settlementForm
		if err := json.Unmarshal(body, &form); err != nil {
			return nil, 0, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation)
		}
		if err := h.validator.Struct(form); err != nil {
			return nil, 0, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
		}
		input, err := form.input()
		if err != nil {
			return nil, 0, err
		}
		settlement, err := h.service.CreateSettlement(r.Context(), companyID, actorID, input)
		if err != nil {
			return nil, 0, err
		}
		return settlement, http.StatusCreated, nil
	})
}

type replaceAllocationsForm struct {
	Allocations []allocationForm `json:"allocations" validate:"required,min=1,dive"`
}

func (h *Handler) handleReplaceAllocations(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "settlementID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.SettlementNoun+" not found")
		return
	}
	var form replaceAllocationsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs, err := parseAllocationForms(form.Allocations)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	settlement, allocs, err := h.service.ReplaceAllocations(r.Context(), companyID, id, actorID, inputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlementResponse{Settlement: settlement, Allocations: allocs})
}

// handlePostSettlement is guarded per settlement id.
func (h *Handler) handlePostSettlement(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "settlementID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.SettlementNoun+" not found")
		return
	}
	scope := fmt.Sprintf("%s.post:%s", h.paths.SettlementSlug, id)
	h.guard.Execute(w, r, companyID, scope, func([]byte) (any, int, error) {
		settlement, err := h.service.PostSettlement(r.Context(), companyID, id, actorID)
		if err != nil {
			return nil, 0, err
		}
		return settlement, http.StatusOK, nil
	})
}

func (h *Handler) handleVoidSettlement(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "settlementID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.service.config.SettlementNoun+" not found")
		return
	}
	settlement, err := h.service.VoidSettlement(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settlement)
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	report, err := h.service.Aging(r.Context(), companyID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
