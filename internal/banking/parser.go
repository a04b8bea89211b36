package banking

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// ParsedRow is one usable statement row.
type ParsedRow struct {
	TxnDate     time.Time
	Description string
	Reference   string
	Amount      decimal.Decimal
}

// ParseCSV reads statement content. The header must carry a date (or
// txn_date) column and an amount column; dates are ISO (YYYY-MM-DD). Rows
// without a date are skipped.
func ParseCSV(content string) ([]ParsedRow, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: CSV content is empty.", httpx.ErrValidation)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: CSV header row is missing.", httpx.ErrValidation)
	}

	dateCol, amountCol := -1, -1
	descCol, refCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "txn_date":
			if dateCol < 0 {
				dateCol = i
			}
		case "amount":
			amountCol = i
		case "description":
			descCol = i
		case "reference":
			refCol = i
		}
	}
	if dateCol < 0 || amountCol < 0 {
		return nil, fmt.Errorf("%w: CSV must include date/txn_date and amount columns.", httpx.ErrValidation)
	}

	var rows []ParsedRow
	rowNo := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV row %d is malformed", httpx.ErrValidation, rowNo+1)
		}
		rowNo++

		rawDate := field(record, dateCol)
		if rawDate == "" {
			continue
		}
		txnDate, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return nil, fmt.Errorf("%w: CSV row %d has an invalid date %q", httpx.ErrValidation, rowNo, rawDate)
		}
		rawAmount := field(record, amountCol)
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: CSV row %d has an invalid amount %q", httpx.ErrValidation, rowNo, rawAmount)
		}
		rows = append(rows, ParsedRow{
			TxnDate:     txnDate,
			Description: field(record, descCol),
			Reference:   field(record, refCol),
			Amount:      amount,
		})
	}
	return rows, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
