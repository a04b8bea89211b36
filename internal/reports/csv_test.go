package reports

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWriteTrialBalanceCSV(t *testing.T) {
	report := &TrialBalance{
		Rows: []TrialBalanceRow{
			{AccountCode: "1000", AccountName: "Cash", TotalDebit: decimal.RequireFromString("150"), TotalCredit: decimal.Zero},
		},
		TotalDebit:  decimal.RequireFromString("150"),
		TotalCredit: decimal.Zero,
	}

	var buf strings.Builder
	err := WriteTrialBalanceCSV(&buf, report, Period{Start: day("2026-01-01"), End: day("2026-01-31")})
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "# Report: Trial Balance\r\n"))
	require.Contains(t, out, "# Period: 2026-01-01 to 2026-01-31\r\n")
	require.Contains(t, out, "account_code,account_name,total_debit,total_credit\r\n")
	require.Contains(t, out, "1000,Cash,150.0000,0.0000\r\n")
	require.Contains(t, out, ",Totals,150.0000,0.0000\r\n")
}

func TestWriteBalanceSheetCSVSections(t *testing.T) {
	report := &BalanceSheet{
		AsOf:                day("2026-01-31"),
		Assets:              []BalanceRow{{AccountCode: "1000", AccountName: "Cash", Balance: decimal.RequireFromString("1000")}},
		Liabilities:         []BalanceRow{{AccountCode: "2000", AccountName: "Bank Loan", Balance: decimal.RequireFromString("600")}},
		Equity:              []BalanceRow{{AccountCode: "3000", AccountName: "Owner Capital", Balance: decimal.RequireFromString("400")}},
		TotalAssets:         decimal.RequireFromString("1000"),
		TotalLiabilities:    decimal.RequireFromString("600"),
		TotalEquity:         decimal.RequireFromString("400"),
		LiabilityPlusEquity: decimal.RequireFromString("1000"),
	}

	var buf strings.Builder
	err := WriteBalanceSheetCSV(&buf, report)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "Asset,1000,Cash,1000.0000\r\n")
	require.Contains(t, out, "Liability,2000,Bank Loan,600.0000\r\n")
	require.Contains(t, out, "Equity,3000,Owner Capital,400.0000\r\n")
	require.Contains(t, out, ",,liability_plus_equity_total,1000.0000\r\n")
}

func TestWriteCashFlowCSV(t *testing.T) {
	report := &CashFlow{
		Inflow:  decimal.RequireFromString("300"),
		Outflow: decimal.RequireFromString("40"),
		Net:     decimal.RequireFromString("260"),
	}

	var buf strings.Builder
	err := WriteCashFlowCSV(&buf, report, Period{})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "# Period: open to open\r\n")
	require.Contains(t, out, "metric,value\r\n")
	require.Contains(t, out, "cash_inflow,300.0000\r\n")
	require.Contains(t, out, "cash_outflow,40.0000\r\n")
	require.Contains(t, out, "net_cash_movement,260.0000\r\n")
}
