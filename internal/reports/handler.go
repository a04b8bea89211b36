package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes the report endpoints within a company scope.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware rbac.Middleware
	now        func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, middleware rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, middleware: middleware, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAny(rbac.PermissionAccountingView))
		r.Get("/trial-balance", h.handleTrialBalance)
		r.Get("/profit-loss", h.handleProfitLoss)
		r.Get("/balance-sheet", h.handleBalanceSheet)
		r.Get("/cash-flow", h.handleCashFlow)
		r.Get("/general-ledger", h.handleGeneralLedger)
	})
}

func exportCSV(r *http.Request) bool {
	return r.URL.Query().Get("export") == "csv"
}

func parsePeriod(r *http.Request) (Period, error) {
	var period Period
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return period, fmt.Errorf("%w: start_date must be YYYY-MM-DD", httpx.ErrValidation)
		}
		period.Start = start
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return period, fmt.Errorf("%w: end_date must be YYYY-MM-DD", httpx.ErrValidation)
		}
		period.End = end
	}
	return period, nil
}

func csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	period, err := parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.TrialBalance(r.Context(), companyID, period)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exportCSV(r) {
		csvHeaders(w, "trial_balance.csv")
		if err := WriteTrialBalanceCSV(w, report, period); err != nil {
			h.logger.Error("trial balance csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	period, err := parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.ProfitLoss(r.Context(), companyID, period)
	if err != nil {
		h.logger.Error("profit loss", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exportCSV(r) {
		csvHeaders(w, "profit_loss.csv")
		if err := WriteProfitLossCSV(w, report, period); err != nil {
			h.logger.Error("profit loss csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	asOf := h.now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: as_of must be YYYY-MM-DD", httpx.ErrValidation))
			return
		}
		asOf = parsed
	}
	report, err := h.service.BalanceSheet(r.Context(), companyID, asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exportCSV(r) {
		csvHeaders(w, "balance_sheet.csv")
		if err := WriteBalanceSheetCSV(w, report); err != nil {
			h.logger.Error("balance sheet csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	period, err := parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.CashFlow(r.Context(), companyID, period)
	if err != nil {
		h.logger.Error("cash flow", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exportCSV(r) {
		csvHeaders(w, "cash_flow.csv")
		if err := WriteCashFlowCSV(w, report, period); err != nil {
			h.logger.Error("cash flow csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleGeneralLedger(w http.ResponseWriter, r *http.Request) {
	companyID, _ := shared.CompanyIDFromContext(r.Context())
	period, err := parsePeriod(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := GeneralLedgerFilter{Period: period}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: account_id must be a UUID", httpx.ErrValidation))
			return
		}
		filter.AccountID = &accountID
	}
	rows, err := h.service.GeneralLedger(r.Context(), companyID, filter)
	if err != nil {
		h.logger.Error("general ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exportCSV(r) {
		csvHeaders(w, "general_ledger.csv")
		if err := WriteGeneralLedgerCSV(w, rows, period); err != nil {
			h.logger.Error("general ledger csv", slog.Any("error", err))
		}
		return
	}
	if rows == nil {
		rows = []GeneralLedgerRow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows, "limit": generalLedgerLimit})
}
