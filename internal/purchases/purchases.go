// Package purchases instantiates the trade engine on the payable side:
// bills settled by vendor payments, accounts payable as the control account.
package purchases

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/idempotency"
	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/trade"
)

// Config fixes the payable side of the trade engine.
func Config() trade.Config {
	return trade.Config{
		Side:                  trade.SidePayable,
		DocNoun:               "bill",
		SettlementNoun:        "vendor payment",
		DocSequenceKey:        accounting.SequenceBill,
		SettlementSequenceKey: accounting.SequenceVendorPayment,
		DocReference:          journals.ReferenceBill,
		SettlementReference:   journals.ReferenceVendorPayment,
		ContactKind:           contacts.KindVendor,
	}
}

// Paths names the URL segments and idempotency scope prefixes.
func Paths() trade.HandlerPaths {
	return trade.HandlerPaths{DocSlug: "bills", SettlementSlug: "vendor-payments"}
}

// NewService constructs the payable-side service over the bill tables.
func NewService(pool *pgxpool.Pool, contactSource trade.ContactSource, audit shared.AuditPort) *trade.Service {
	repo := trade.NewRepository(pool, trade.PayableTables, "bill")
	return trade.NewService(Config(), repo, contactSource, audit)
}

// NewHandler constructs the purchases HTTP handler.
func NewHandler(logger *slog.Logger, service *trade.Service, guard *idempotency.Guard, middleware rbac.Middleware) *trade.Handler {
	return trade.NewHandler(logger, service, guard, middleware, Paths())
}
