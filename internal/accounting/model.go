// Package accounting holds the chart of accounts and document number
// sequences.
package accounting

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies an account for reporting.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether the type is one of the known values.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side an account naturally grows on.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// DefaultNormalBalance returns the conventional side for an account type.
func DefaultNormalBalance(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalBalanceDebit
	default:
		return NormalBalanceCredit
	}
}

// Account is one row of the chart of accounts. Code is unique per company.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	CompanyID     uuid.UUID     `json:"company_id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Type          AccountType   `json:"type"`
	NormalBalance NormalBalance `json:"normal_balance"`
	ParentID      *uuid.UUID    `json:"parent_id,omitempty"`
	IsActive      bool          `json:"is_active"`
	IsSystem      bool          `json:"is_system"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Sequence keys for generated document numbers.
const (
	SequenceJournalEntry  = "journal_entry"
	SequenceInvoice       = "invoice"
	SequenceReceipt       = "receipt"
	SequenceBill          = "bill"
	SequenceVendorPayment = "vendor_payment"
)
