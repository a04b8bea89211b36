// Package sales instantiates the trade engine on the receivable side:
// invoices settled by receipts, accounts receivable as the control account.
package sales

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

// Config fixes the receivable side of the trade engine.
func Config() trade.Config {
	return trade.Config{
		Side:                  trade.SideReceivable,
		DocNoun:               "invoice",
		SettlementNoun:        "receipt",
		DocSequenceKey:        accounting.SequenceInvoice,
		SettlementSequenceKey: accounting.SequenceReceipt,
		DocReference:          journals.ReferenceInvoice,
		SettlementReference:   journals.ReferenceReceipt,
		ContactKind:           contacts.KindCustomer,
	}
}

// Paths names the URL segments and idempotency scope prefixes.
func Paths() trade.HandlerPaths {
	return trade.HandlerPaths{DocSlug: "invoices", SettlementSlug: "receipts"}
}

// NewService constructs the receivable-side service over the invoice tables.
func NewService(pool *pgxpool.Pool, contactSource trade.ContactSource, audit shared.AuditPort) *trade.Service {
	repo := trade.NewRepository(pool, trade.ReceivableTables, "invoice")
	return trade.NewService(Config(), repo, contactSource, audit)
}

// NewHandler constructs the sales HTTP handler.
func NewHandler(logger *slog.Logger, service *trade.Service, guard *idempotency.Guard, middleware rbac.Middleware) *trade.Handler {
	return trade.NewHandler(logger, service, guard, middleware, Paths())
}
