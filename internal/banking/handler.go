package banking

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes banking endpoints within a company scope.
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

// MountRoutes registers banking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/accounts", h.handleListAccounts)
		r.Get("/accounts/{bankAccountID}", h.handleGetAccount)
		r.Get("/accounts/{bankAccountID}/imports", h.handleListImports)
		r.Get("/accounts/{bankAccountID}/transactions", h.handleListTransactions)
		r.Get("/accounts/{bankAccountID}/reconciliations", h.handleListReconciliations)
		r.Get("/reconciliations/{reconciliationID}", h.handleGetReconciliation)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingPost))
		r.Post("/accounts", h.handleCreateAccount)
		r.Put("/accounts/{bankAccountID}", h.handleUpdateAccount)
		r.Post("/accounts/{bankAccountID}/imports", h.handleImportStatement)
		r.Post("/transactions/{transactionID}/match", h.handleMatchTransaction)
		r.Post("/transactions/{transactionID}/ignore", h.handleIgnoreTransaction)
		r.Post("/reconciliations", h.handleCreateReconciliation)
		r.Put("/reconciliations/{reconciliationID}/lines", h.handleReplaceReconciliationLines)
		r.Post("/reconciliations/{reconciliationID}/finalize", h.handleFinalizeReconciliation)
	})
}

type bankAccountForm struct {
	Name            string `json:"name" validate:"required"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	LedgerAccountID string `json:"ledger_account_id" validate:"required,uuid"`
	IsActive        *bool  `json:"is_active"`
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form bankAccountForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ledgerID, err := uuid.Parse(form.LedgerAccountID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ledger_account_id must be a UUID")
		return
	}
	account, err := h.service.CreateBankAccount(r.Context(), companyID, actorID, BankAccountInput{
		Name:            form.Name,
		Currency:        form.Currency,
		LedgerAccountID: ledgerID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	var form bankAccountForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := BankAccountInput{Name: form.Name, Currency: form.Currency, IsActive: form.IsActive}
	if form.LedgerAccountID != "" {
		ledgerID, err := uuid.Parse(form.LedgerAccountID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ledger_account_id must be a UUID")
			return
		}
		input.LedgerAccountID = ledgerID
	}
	account, err := h.service.UpdateBankAccount(r.Context(), companyID, id, actorID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	account, err := h.service.GetBankAccount(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	accounts, err := h.service.ListBankAccounts(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list bank accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []BankAccount{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type importForm struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (h *Handler) handleImportStatement(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	var form importForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	imp, err := h.service.ParseStatement(r.Context(), companyID, actorID, id, form.Filename, form.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, imp)
}

func (h *Handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	imports, err := h.service.ListImports(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if imports == nil {
		imports = []StatementImport{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"imports": imports})
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	status := TransactionStatus(r.URL.Query().Get("status"))
	txns, err := h.service.ListTransactions(r.Context(), companyID, id, status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if txns == nil {
		txns = []BankTransaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

type matchForm struct {
	JournalEntryID string `json:"journal_entry_id" validate:"required,uuid"`
}

func (h *Handler) handleMatchTransaction(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "transactionID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank transaction not found")
		return
	}
	var form matchForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryID, err := uuid.Parse(form.JournalEntryID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "journal_entry_id must be a UUID")
		return
	}
	txn, err := h.service.MatchTransaction(r.Context(), companyID, id, entryID, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) handleIgnoreTransaction(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "transactionID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank transaction not found")
		return
	}
	txn, err := h.service.IgnoreTransaction(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

type reconciliationForm struct {
	BankAccountID  string `json:"bank_account_id" validate:"required,uuid"`
	StartDate      string `json:"start_date" validate:"required"`
	EndDate        string `json:"end_date" validate:"required"`
	OpeningBalance string `json:"opening_balance"`
	ClosingBalance string `json:"closing_balance"`
}

func (h *Handler) handleCreateReconciliation(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	var form reconciliationForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	bankAccountID, err := uuid.Parse(form.BankAccountID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bank_account_id must be a UUID")
		return
	}
	startDate, err := time.Parse("2006-01-02", form.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse("2006-01-02", form.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	opening, err := parseBalance(form.OpeningBalance)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid opening_balance")
		return
	}
	closing, err := parseBalance(form.ClosingBalance)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid closing_balance")
		return
	}
	rec, err := h.service.CreateReconciliation(r.Context(), companyID, actorID, ReconciliationInput{
		BankAccountID:  bankAccountID,
		StartDate:      startDate,
		EndDate:        endDate,
		OpeningBalance: opening,
		ClosingBalance: closing,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "reconciliationID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "reconciliation not found")
		return
	}
	rec, err := h.service.GetReconciliation(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.ListReconciliationLines(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciliation": rec, "lines": lines})
}

func (h *Handler) handleListReconciliations(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	id, ok := pathID(r, "bankAccountID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bank account not found")
		return
	}
	recs, err := h.service.ListReconciliations(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if recs == nil {
		recs = []Reconciliation{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciliations": recs})
}

type reconciliationLinesForm struct {
	TransactionIDs []string `json:"transaction_ids" validate:"required,min=1,dive,uuid"`
}

func (h *Handler) handleReplaceReconciliationLines(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "reconciliationID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "reconciliation not found")
		return
	}
	var form reconciliationLinesForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(form.TransactionIDs))
	for _, raw := range form.TransactionIDs {
		txnID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transaction_ids must be UUIDs")
			return
		}
		ids = append(ids, txnID)
	}
	rec, lines, err := h.service.ReplaceReconciliationLines(r.Context(), companyID, id, actorID, ids)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciliation": rec, "lines": lines})
}

func (h *Handler) handleFinalizeReconciliation(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	actorID, _ := shared.UserIDFromContext(r.Context())
	id, ok := pathID(r, "reconciliationID")
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "reconciliation not found")
		return
	}
	rec, err := h.service.FinalizeReconciliation(r.Context(), companyID, id, actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func parseBalance(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
