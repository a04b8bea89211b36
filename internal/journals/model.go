// Package journals implements the double-entry journal engine. Entries move
// draft -> posted -> void; posted entries are immutable and voiding creates a
// posted reversal entry instead of rewriting history.
package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates the journal entry lifecycle.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
	StatusVoid   Status = "void"
)

// ReferenceType discriminates what a journal entry was generated from.
type ReferenceType string

const (
	ReferenceInvoice         ReferenceType = "invoice"
	ReferenceReceipt         ReferenceType = "receipt"
	ReferenceBill            ReferenceType = "bill"
	ReferenceVendorPayment   ReferenceType = "vendor_payment"
	ReferenceJournalReversal ReferenceType = "journal_reversal"
)

// Reference points at the source object of a generated entry.
type Reference struct {
	Type ReferenceType `json:"type"`
	ID   uuid.UUID     `json:"id"`
}

// Entry is a journal entry header.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	CompanyID   uuid.UUID  `json:"company_id"`
	EntryNo     *int64     `json:"entry_no"`
	Status      Status     `json:"status"`
	EntryDate   time.Time  `json:"entry_date"`
	Description string     `json:"description"`
	Reference   *Reference `json:"reference,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	PostedBy    *int64     `json:"posted_by,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	VoidedBy    *int64     `json:"voided_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Line is a single debit or credit. Exactly one side is positive.
type Line struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"company_id"`
	EntryID     uuid.UUID       `json:"entry_id"`
	LineNo      int             `json:"line_no"`
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LineInput carries one line of a replace-lines request. LineNo defaults to
// the 1-based input position when zero.
type LineInput struct {
	LineNo      int
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// ListFilter narrows entry listings.
type ListFilter struct {
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
