package reports

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const generalLedgerLimit = 200

// BankLedgerSource exposes the ledger accounts linked to bank accounts, so
// the cash flow report can treat them as cash regardless of their names.
type BankLedgerSource interface {
	LedgerAccountIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)
}

// Service computes reports from posted journal lines.
type Service struct {
	lines LineSource
	banks BankLedgerSource
}

// NewService constructs the report service.
func NewService(lines LineSource, banks BankLedgerSource) *Service {
	return &Service{lines: lines, banks: banks}
}

type accountTotal struct {
	code    string
	name    string
	accType accounting.AccountType
	debit   decimal.Decimal
	credit  decimal.Decimal
}

func totalsByAccount(lines []PostedLine) map[uuid.UUID]*accountTotal {
	totals := make(map[uuid.UUID]*accountTotal)
	for _, l := range lines {
		t, ok := totals[l.AccountID]
		if !ok {
			t = &accountTotal{code: l.AccountCode, name: l.AccountName, accType: l.AccountType}
			totals[l.AccountID] = t
		}
		t.debit = t.debit.Add(l.Debit)
		t.credit = t.credit.Add(l.Credit)
	}
	return totals
}

func sortedAccountIDs(totals map[uuid.UUID]*accountTotal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := totals[ids[i]], totals[ids[j]]
		if a.code != b.code {
			return a.code < b.code
		}
		return a.name < b.name
	})
	return ids
}

// TrialBalance totals debits and credits per account over the period.
func (s *Service) TrialBalance(ctx context.Context, companyID uuid.UUID, period Period) (*TrialBalance, error) {
	lines, err := s.lines.PostedLines(ctx, companyID, LineFilter{Period: period})
	if err != nil {
		return nil, err
	}

	totals := totalsByAccount(lines)
	report := &TrialBalance{
		Rows:        []TrialBalanceRow{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, id := range sortedAccountIDs(totals) {
		t := totals[id]
		debit := shared.Quantize(t.debit)
		credit := shared.Quantize(t.credit)
		report.Rows = append(report.Rows, TrialBalanceRow{
			AccountID:   id,
			AccountCode: t.code,
			AccountName: t.name,
			AccountType: string(t.accType),
			TotalDebit:  debit,
			TotalCredit: credit,
		})
		report.TotalDebit = report.TotalDebit.Add(debit)
		report.TotalCredit = report.TotalCredit.Add(credit)
	}
	report.TotalDebit = shared.Quantize(report.TotalDebit)
	report.TotalCredit = shared.Quantize(report.TotalCredit)
	return report, nil
}

// ProfitLoss nets income against expenses over the period. Income balances
// are credit minus debit, expense balances debit minus credit.
func (s *Service) ProfitLoss(ctx context.Context, companyID uuid.UUID, period Period) (*ProfitLoss, error) {
	lines, err := s.lines.PostedLines(ctx, companyID, LineFilter{Period: period})
	if err != nil {
		return nil, err
	}

	totals := totalsByAccount(lines)
	report := &ProfitLoss{
		Income:       []BalanceRow{},
		Expenses:     []BalanceRow{},
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, id := range sortedAccountIDs(totals) {
		t := totals[id]
		switch t.accType {
		case accounting.AccountTypeIncome:
			balance := shared.Quantize(t.credit.Sub(t.debit))
			report.Income = append(report.Income, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: balance})
			report.TotalIncome = report.TotalIncome.Add(balance)
		case accounting.AccountTypeExpense:
			balance := shared.Quantize(t.debit.Sub(t.credit))
			report.Expenses = append(report.Expenses, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: balance})
			report.TotalExpense = report.TotalExpense.Add(balance)
		}
	}
	report.TotalIncome = shared.Quantize(report.TotalIncome)
	report.TotalExpense = shared.Quantize(report.TotalExpense)
	report.NetProfit = shared.Quantize(report.TotalIncome.Sub(report.TotalExpense))
	return report, nil
}

// BalanceSheet reports asset, liability and equity balances as of a date.
// Income and expense accounts are not folded in, so the statement only
// balances once earnings are closed to equity.
func (s *Service) BalanceSheet(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*BalanceSheet, error) {
	lines, err := s.lines.PostedLines(ctx, companyID, LineFilter{Period: Period{End: asOf}})
	if err != nil {
		return nil, err
	}

	totals := totalsByAccount(lines)
	report := &BalanceSheet{
		AsOf:             asOf,
		Assets:           []BalanceRow{},
		Liabilities:      []BalanceRow{},
		Equity:           []BalanceRow{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
	}
	for _, id := range sortedAccountIDs(totals) {
		t := totals[id]
		switch t.accType {
		case accounting.AccountTypeAsset:
			balance := shared.Quantize(t.debit.Sub(t.credit))
			report.Assets = append(report.Assets, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: balance})
			report.TotalAssets = report.TotalAssets.Add(balance)
		case accounting.AccountTypeLiability:
			balance := shared.Quantize(t.credit.Sub(t.debit))
			report.Liabilities = append(report.Liabilities, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: balance})
			report.TotalLiabilities = report.TotalLiabilities.Add(balance)
		case accounting.AccountTypeEquity:
			balance := shared.Quantize(t.credit.Sub(t.debit))
			report.Equity = append(report.Equity, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: balance})
			report.TotalEquity = report.TotalEquity.Add(balance)
		}
	}
	report.TotalAssets = shared.Quantize(report.TotalAssets)
	report.TotalLiabilities = shared.Quantize(report.TotalLiabilities)
	report.TotalEquity = shared.Quantize(report.TotalEquity)
	report.LiabilityPlusEquity = shared.Quantize(report.TotalLiabilities.Add(report.TotalEquity))
	return report, nil
}

// CashFlow sums movements through cash accounts over the period. Cash
// accounts are the ledger accounts linked to bank accounts plus asset
// accounts whose name mentions cash or bank.
func (s *Service) CashFlow(ctx context.Context, companyID uuid.UUID, period Period) (*CashFlow, error) {
	lines, err := s.lines.PostedLines(ctx, companyID, LineFilter{Period: period})
	if err != nil {
		return nil, err
	}

	bankLedgers := map[uuid.UUID]bool{}
	if s.banks != nil {
		ids, err := s.banks.LedgerAccountIDs(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			bankLedgers[id] = true
		}
	}

	totals := totalsByAccount(lines)
	report := &CashFlow{
		Accounts: []BalanceRow{},
		Inflow:   decimal.Zero,
		Outflow:  decimal.Zero,
	}
	for _, id := range sortedAccountIDs(totals) {
		t := totals[id]
		if !bankLedgers[id] && !isCashByName(t.accType, t.name) {
			continue
		}
		delta := shared.Quantize(t.debit.Sub(t.credit))
		report.Accounts = append(report.Accounts, BalanceRow{AccountID: id, AccountCode: t.code, AccountName: t.name, Balance: delta})
		if delta.IsNegative() {
			report.Outflow = report.Outflow.Add(delta.Neg())
		} else {
			report.Inflow = report.Inflow.Add(delta)
		}
	}
	report.Inflow = shared.Quantize(report.Inflow)
	report.Outflow = shared.Quantize(report.Outflow)
	report.Net = shared.Quantize(report.Inflow.Sub(report.Outflow))
	return report, nil
}

func isCashByName(accType accounting.AccountType, name string) bool {
	if accType != accounting.AccountTypeAsset {
		return false
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "cash") || strings.Contains(lower, "bank")
}

// GeneralLedgerFilter narrows the ledger listing.
type GeneralLedgerFilter struct {
	Period    Period
	AccountID *uuid.UUID
}

// GeneralLedger lists posted lines newest first, capped at 200 rows.
func (s *Service) GeneralLedger(ctx context.Context, companyID uuid.UUID, filter GeneralLedgerFilter) ([]GeneralLedgerRow, error) {
	lines, err := s.lines.PostedLines(ctx, companyID, LineFilter{
		Period:      filter.Period,
		AccountID:   filter.AccountID,
		Limit:       generalLedgerLimit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]GeneralLedgerRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, GeneralLedgerRow{
			EntryID:     l.EntryID,
			EntryNo:     l.EntryNo,
			EntryDate:   l.EntryDate,
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Description: l.Description,
			Debit:       shared.Quantize(l.Debit),
			Credit:      shared.Quantize(l.Credit),
		})
	}
	return rows, nil
}
