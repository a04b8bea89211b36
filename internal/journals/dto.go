package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type lineForm struct {
	LineNo      int    `json:"line_no"`
	AccountID   string `json:"account_id" validate:"required,uuid"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

func (f lineForm) input() (LineInput, error) {
	accountID, err := uuid.Parse(f.AccountID)
	if err != nil {
		return LineInput{}, fmt.Errorf("%w: account_id must be a UUID", httpx.ErrValidation)
	}
	debit, err := parseAmount(f.Debit)
	if err != nil {
		return LineInput{}, fmt.Errorf("%w: invalid debit amount %q", httpx.ErrValidation, f.Debit)
	}
	credit, err := parseAmount(f.Credit)
	if err != nil {
		return LineInput{}, fmt.Errorf("%w: invalid credit amount %q", httpx.ErrValidation, f.Credit)
	}
	return LineInput{
		LineNo:      f.LineNo,
		AccountID:   accountID,
		Description: f.Description,
		Debit:       debit,
		Credit:      credit,
	}, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseLineForms(forms []lineForm) ([]LineInput, error) {
	inputs := make([]LineInput, 0, len(forms))
	for _, f := range forms {
		input, err := f.input()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

type createEntryForm struct {
	EntryDate   string     `json:"entry_date"`
	Description string     `json:"description"`
	Lines       []lineForm `json:"lines" validate:"omitempty,dive"`
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

// entryResponse pairs an entry with its lines for detail endpoints.
type entryResponse struct {
	Entry *Entry `json:"entry"`
	Lines []Line `json:"lines"`
}

// voidResponse returns the voided entry and its reversal.
type voidResponse struct {
	Entry    *Entry `json:"entry"`
	Reversal *Entry `json:"reversal"`
}
