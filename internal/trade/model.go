// Package trade implements the document engine behind sales and purchases.
// One engine serves both sides: invoices settled by receipts (receivable) and
// bills settled by vendor payments (payable). The two sides differ only in
// which side of the journal the control and settle accounts land on.
package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/journals"
)

// Side selects the polarity of generated journal lines.
type Side string

const (
	SideReceivable Side = "receivable"
	SidePayable    Side = "payable"
)

// DocStatus enumerates the document lifecycle. Settlement postings move a
// posted document through partially_paid to paid and back on void.
type DocStatus string

const (
	DocDraft         DocStatus = "draft"
	DocPosted        DocStatus = "posted"
	DocPartiallyPaid DocStatus = "partially_paid"
	DocPaid          DocStatus = "paid"
	DocVoid          DocStatus = "void"
)

// SettlementStatus enumerates the settlement lifecycle.
type SettlementStatus string

const (
	SettlementDraft  SettlementStatus = "draft"
	SettlementPosted SettlementStatus = "posted"
	SettlementVoid   SettlementStatus = "void"
)

// Doc is an invoice or a bill.
type Doc struct {
	ID               uuid.UUID       `json:"id"`
	CompanyID        uuid.UUID       `json:"company_id"`
	DocNo            *int64          `json:"doc_no"`
	Status           DocStatus       `json:"status"`
	ContactID        uuid.UUID       `json:"contact_id"`
	DocDate          time.Time       `json:"doc_date"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxTotal         decimal.Decimal `json:"tax_total"`
	Total            decimal.Decimal `json:"total"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	ControlAccountID uuid.UUID       `json:"control_account_id"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
	Memo             string          `json:"memo"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OpenAmount is the unsettled remainder of the document total.
func (d *Doc) OpenAmount() decimal.Decimal {
	return d.Total.Sub(d.AmountPaid)
}

// DocLine is one priced line of a document.
type DocLine struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"company_id"`
	DocID       uuid.UUID       `json:"doc_id"`
	LineNo      int             `json:"line_no"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	AccountID   uuid.UUID       `json:"account_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Settlement is a receipt or a vendor payment.
type Settlement struct {
	ID              uuid.UUID        `json:"id"`
	CompanyID       uuid.UUID        `json:"company_id"`
	DocNo           *int64           `json:"doc_no"`
	Status          SettlementStatus `json:"status"`
	ContactID       uuid.UUID        `json:"contact_id"`
	SettleDate      time.Time        `json:"settle_date"`
	Amount          decimal.Decimal  `json:"amount"`
	SettleAccountID uuid.UUID        `json:"settle_account_id"`
	JournalEntryID  *uuid.UUID       `json:"journal_entry_id,omitempty"`
	Memo            string           `json:"memo"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Allocation applies part of a settlement to one document.
type Allocation struct {
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"company_id"`
	SettlementID uuid.UUID       `json:"settlement_id"`
	DocID        uuid.UUID       `json:"doc_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DocLineInput carries one line of a replace-lines request.
type DocLineInput struct {
	LineNo      int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	AccountID   uuid.UUID
}

// AllocationInput carries one allocation of a replace-allocations request.
type AllocationInput struct {
	DocID  uuid.UUID
	Amount decimal.Decimal
}

// DocFilter narrows document listings.
type DocFilter struct {
	Status    DocStatus
	ContactID *uuid.UUID
	Limit     int
}

// Config fixes one side of the engine. Sales and purchases each hold one.
type Config struct {
	Side                  Side
	DocNoun               string
	SettlementNoun        string
	DocSequenceKey        string
	SettlementSequenceKey string
	DocReference          journals.ReferenceType
	SettlementReference   journals.ReferenceType
	ContactKind           contacts.Kind
}

// docDebitsControl reports whether the control account is debited when a
// document posts. Receivables debit AR; payables credit AP.
func (c Config) docDebitsControl() bool {
	return c.Side == SideReceivable
}
