// Package banking covers bank accounts, statement imports, and
// reconciliation of imported transactions against posted journal entries.
package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImportStatus enumerates the statement import lifecycle.
type ImportStatus string

const (
	ImportUploaded ImportStatus = "uploaded"
	ImportParsed   ImportStatus = "parsed"
	ImportFailed   ImportStatus = "failed"
)

// TransactionStatus enumerates the bank transaction lifecycle.
type TransactionStatus string

const (
	TransactionImported   TransactionStatus = "imported"
	TransactionMatched    TransactionStatus = "matched"
	TransactionReconciled TransactionStatus = "reconciled"
	TransactionIgnored    TransactionStatus = "ignored"
)

// ReconciliationStatus enumerates the reconciliation lifecycle.
type ReconciliationStatus string

const (
	ReconciliationDraft     ReconciliationStatus = "draft"
	ReconciliationFinalized ReconciliationStatus = "finalized"
)

// BankAccount links a real-world account to a ledger account.
type BankAccount struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"company_id"`
	Name            string    `json:"name"`
	Currency        string    `json:"currency"`
	LedgerAccountID uuid.UUID `json:"ledger_account_id"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatementImport records one uploaded CSV statement.
type StatementImport struct {
	ID            uuid.UUID    `json:"id"`
	CompanyID     uuid.UUID    `json:"company_id"`
	BankAccountID uuid.UUID    `json:"bank_account_id"`
	Status        ImportStatus `json:"status"`
	Filename      string       `json:"filename"`
	RawContent    string       `json:"-"`
	ErrorMessage  string       `json:"error_message"`
	RowCount      int          `json:"row_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// BankTransaction is one statement row. Amount is signed.
type BankTransaction struct {
	ID             uuid.UUID         `json:"id"`
	CompanyID      uuid.UUID         `json:"company_id"`
	BankAccountID  uuid.UUID         `json:"bank_account_id"`
	ImportID       *uuid.UUID        `json:"import_id,omitempty"`
	TxnDate        time.Time         `json:"txn_date"`
	Description    string            `json:"description"`
	Reference      string            `json:"reference"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	MatchedEntryID *uuid.UUID        `json:"matched_entry_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Reconciliation covers one bank account over a date range.
type Reconciliation struct {
	ID             uuid.UUID            `json:"id"`
	CompanyID      uuid.UUID            `json:"company_id"`
	BankAccountID  uuid.UUID            `json:"bank_account_id"`
	Status         ReconciliationStatus `json:"status"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        time.Time            `json:"end_date"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	ClosingBalance decimal.Decimal      `json:"closing_balance"`
	FinalizedAt    *time.Time           `json:"finalized_at,omitempty"`
	FinalizedBy    *int64               `json:"finalized_by,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ReconciliationLine ties one bank transaction into a reconciliation.
type ReconciliationLine struct {
	ID                uuid.UUID `json:"id"`
	CompanyID         uuid.UUID `json:"company_id"`
	ReconciliationID  uuid.UUID `json:"reconciliation_id"`
	BankTransactionID uuid.UUID `json:"bank_transaction_id"`
	CreatedAt         time.Time `json:"created_at"`
}
