package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var sectionTitle = cases.Title(language.English)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

func writeHeader(s *csvStreamer, name string, period Period) error {
	if err := s.writeComment(fmt.Sprintf("# Report: %s", name)); err != nil {
		return err
	}
	return s.writeComment(fmt.Sprintf("# Period: %s", formatPeriod(period)))
}

func formatPeriod(p Period) string {
	start, end := "open", "open"
	if !p.Start.IsZero() {
		start = p.Start.Format("2006-01-02")
	}
	if !p.End.IsZero() {
		end = p.End.Format("2006-01-02")
	}
	return start + " to " + end
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(4)
}

// WriteTrialBalanceCSV streams the trial balance as CSV.
func WriteTrialBalanceCSV(w io.Writer, report *TrialBalance, period Period) error {
	streamer := newCSVStreamer(w)
	if err := writeHeader(streamer, "Trial Balance", period); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"account_code", "account_name", "total_debit", "total_credit"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := streamer.writeRow([]string{
			row.AccountCode, row.AccountName,
			formatAmount(row.TotalDebit), formatAmount(row.TotalCredit),
		}); err != nil {
			return err
		}
	}
	if err := streamer.writeRow([]string{"", "Totals", formatAmount(report.TotalDebit), formatAmount(report.TotalCredit)}); err != nil {
		return err
	}
	return streamer.Close()
}

// WriteProfitLossCSV streams the profit and loss statement as CSV.
func WriteProfitLossCSV(w io.Writer, report *ProfitLoss, period Period) error {
	streamer := newCSVStreamer(w)
	if err := writeHeader(streamer, "Profit & Loss", period); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"section", "account_code", "account_name", "balance"}); err != nil {
		return err
	}
	if err := writeBalanceSection(streamer, "income", report.Income); err != nil {
		return err
	}
	if err := writeBalanceSection(streamer, "expense", report.Expenses); err != nil {
		return err
	}
	totals := [][]string{
		{"", "", "income_total", formatAmount(report.TotalIncome)},
		{"", "", "expense_total", formatAmount(report.TotalExpense)},
		{"", "", "net_profit", formatAmount(report.NetProfit)},
	}
	for _, row := range totals {
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	return streamer.Close()
}

// WriteBalanceSheetCSV streams the balance sheet as CSV.
func WriteBalanceSheetCSV(w io.Writer, report *BalanceSheet) error {
	streamer := newCSVStreamer(w)
	period := Period{End: report.AsOf}
	if err := writeHeader(streamer, "Balance Sheet", period); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"section", "account_code", "account_name", "balance"}); err != nil {
		return err
	}
	if err := writeBalanceSection(streamer, "asset", report.Assets); err != nil {
		return err
	}
	if err := writeBalanceSection(streamer, "liability", report.Liabilities); err != nil {
		return err
	}
	if err := writeBalanceSection(streamer, "equity", report.Equity); err != nil {
		return err
	}
	totals := [][]string{
		{"", "", "asset_total", formatAmount(report.TotalAssets)},
		{"", "", "liability_total", formatAmount(report.TotalLiabilities)},
		{"", "", "equity_total", formatAmount(report.TotalEquity)},
		{"", "", "liability_plus_equity_total", formatAmount(report.LiabilityPlusEquity)},
	}
	for _, row := range totals {
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	return streamer.Close()
}

func writeBalanceSection(s *csvStreamer, section string, rows []BalanceRow) error {
	label := sectionTitle.String(section)
	for _, row := range rows {
		if err := s.writeRow([]string{label, row.AccountCode, row.AccountName, formatAmount(row.Balance)}); err != nil {
			return err
		}
	}
	return nil
}

// WriteCashFlowCSV streams the cash flow summary as CSV.
func WriteCashFlowCSV(w io.Writer, report *CashFlow, period Period) error {
	streamer := newCSVStreamer(w)
	if err := writeHeader(streamer, "Cash Flow", period); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"metric", "value"}); err != nil {
		return err
	}
	rows := [][]string{
		{"cash_inflow", formatAmount(report.Inflow)},
		{"cash_outflow", formatAmount(report.Outflow)},
		{"net_cash_movement", formatAmount(report.Net)},
	}
	for _, row := range rows {
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	return streamer.Close()
}

// WriteGeneralLedgerCSV streams the ledger listing as CSV.
func WriteGeneralLedgerCSV(w io.Writer, rows []GeneralLedgerRow, period Period) error {
	streamer := newCSVStreamer(w)
	if err := writeHeader(streamer, "General Ledger", period); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"entry_date", "entry_no", "account_code", "account_name", "description", "debit", "credit"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := streamer.writeRow([]string{
			row.EntryDate.Format("2006-01-02"),
			strconv.FormatInt(row.EntryNo, 10),
			row.AccountCode,
			row.AccountName,
			row.Description,
			formatAmount(row.Debit),
			formatAmount(row.Credit),
		}); err != nil {
			return err
		}
	}
	return streamer.Close()
}
