// Package reports builds financial reports from posted journal lines.
package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/accounting"
)

// PostedLine is one journal line of a posted entry joined with its account.
type PostedLine struct {
	AccountID   uuid.UUID
	AccountCode string
	AccountName string
	AccountType accounting.AccountType
	EntryID     uuid.UUID
	EntryNo     int64
	EntryDate   time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Period bounds a report. Zero values mean unbounded.
type Period struct {
	Start time.Time
	End   time.Time
}

// TrialBalanceRow is the per-account debit/credit total.
type TrialBalanceRow struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// TrialBalance is the full statement.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// BalanceRow is one account balance on a signed-balance report.
type BalanceRow struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Balance     decimal.Decimal `json:"balance"`
}

// ProfitLoss reports income against expenses over a period.
type ProfitLoss struct {
	Income       []BalanceRow    `json:"income"`
	Expenses     []BalanceRow    `json:"expenses"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetProfit    decimal.Decimal `json:"net_profit"`
}

// BalanceSheet reports assets against liabilities and equity as of a date.
type BalanceSheet struct {
	AsOf                time.Time       `json:"as_of"`
	Assets              []BalanceRow    `json:"assets"`
	Liabilities         []BalanceRow    `json:"liabilities"`
	Equity              []BalanceRow    `json:"equity"`
	TotalAssets         decimal.Decimal `json:"total_assets"`
	TotalLiabilities    decimal.Decimal `json:"total_liabilities"`
	TotalEquity         decimal.Decimal `json:"total_equity"`
	LiabilityPlusEquity decimal.Decimal `json:"liability_plus_equity"`
}

// CashFlow reports movements through cash accounts over a period.
type CashFlow struct {
	Accounts []BalanceRow    `json:"accounts"`
	Inflow   decimal.Decimal `json:"inflow"`
	Outflow  decimal.Decimal `json:"outflow"`
	Net      decimal.Decimal `json:"net"`
}

// GeneralLedgerRow is one posted line on the ledger listing.
type GeneralLedgerRow struct {
	EntryID     uuid.UUID       `json:"entry_id"`
	EntryNo     int64           `json:"entry_no"`
	EntryDate   time.Time       `json:"entry_date"`
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}
