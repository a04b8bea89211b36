package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type docLineForm struct {
	LineNo      int    `json:"line_no"`
	Description string `json:"description"`
	Quantity    string `json:"quantity" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
	AccountID   string `json:"account_id" validate:"required,uuid"`
}

func (f docLineForm) input() (DocLineInput, error) {
	accountID, err := uuid.Parse(f.AccountID)
	if err != nil {
		return DocLineInput{}, fmt.Errorf("%w: account_id must be a UUID", httpx.ErrValidation)
	}
	quantity, err := decimal.NewFromString(f.Quantity)
	if err != nil {
		return DocLineInput{}, fmt.Errorf("%w: invalid quantity %q", httpx.ErrValidation, f.Quantity)
	}
	unitPrice, err := decimal.NewFromString(f.UnitPrice)
	if err != nil {
		return DocLineInput{}, fmt.Errorf("%w: invalid unit price %q", httpx.ErrValidation, f.UnitPrice)
	}
	return DocLineInput{
		LineNo:      f.LineNo,
		Description: f.Description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		AccountID:   accountID,
	}, nil
}

func parseDocLineForms(forms []docLineForm) ([]DocLineInput, error) {
	inputs := make([]DocLineInput, 0, len(forms))
	for _, f := range forms {
		input, err := f.input()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

type docForm struct {
	ContactID        string        `json:"contact_id" validate:"required,uuid"`
	DocDate          string        `json:"doc_date"`
	DueDate          string        `json:"due_date"`
	Currency         string        `json:"currency" validate:"omitempty,len=3"`
	ControlAccountID string        `json:"control_account_id" validate:"required,uuid"`
	Memo             string        `json:"memo"`
	Lines            []docLineForm `json:"lines" validate:"omitempty,dive"`
}

func (f docForm) input() (CreateDocInput, error) {
	contactID, err := uuid.Parse(f.ContactID)
	if err != nil {
		return CreateDocInput{}, fmt.Errorf("%w: contact_id must be a UUID", httpx.ErrValidation)
	}
	controlID, err := uuid.Parse(f.ControlAccountID)
	if err != nil {
		return CreateDocInput{}, fmt.Errorf("%w: control_account_id must be a UUID", httpx.ErrValidation)
	}
	docDate, err := parseFormDate(f.DocDate)
	if err != nil {
		return CreateDocInput{}, fmt.Errorf("%w: doc_date must be YYYY-MM-DD", httpx.ErrValidation)
	}
	var dueDate *time.Time
	if f.DueDate != "" {
		due, err := parseFormDate(f.DueDate)
		if err != nil {
			return CreateDocInput{}, fmt.Errorf("%w: due_date must be YYYY-MM-DD", httpx.ErrValidation)
		}
		dueDate = &due
	}
	lines, err := parseDocLineForms(f.Lines)
	if err != nil {
		return CreateDocInput{}, err
	}
	return CreateDocInput{
		ContactID:        contactID,
		DocDate:          docDate,
		DueDate:          dueDate,
		Currency:         f.Currency,
		ControlAccountID: controlID,
		Memo:             f.Memo,
		Lines:            lines,
	}, nil
}

type allocationForm struct {
	DocID  string `json:"doc_id" validate:"required,uuid"`
	Amount string `json:"amount" validate:"required"`
}

func parseAllocationForms(forms []allocationForm) ([]AllocationInput, error) {
	inputs := make([]AllocationInput, 0, len(forms))
	for _, f := range forms {
		docID, err := uuid.Parse(f.DocID)
		if err != nil {
			return nil, fmt.Errorf("%w: doc_id must be a UUID", httpx.ErrValidation)
		}
		amount, err := decimal.NewFromString(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid amount %q", httpx.ErrValidation, f.Amount)
		}
		inputs = append(inputs, AllocationInput{DocID: docID, Amount: amount})
	}
	return inputs, nil
}

type settlementForm struct {
	ContactID       string           `json:"contact_id" validate:"required,uuid"`
	SettleDate      string           `json:"settle_date"`
	Amount          string           `json:"amount" validate:"required"`
	SettleAccountID string           `json:"settle_account_id" validate:"required,uuid"`
	Memo            string           `json:"memo"`
	Allocations     []allocationForm `json:"allocations" validate:"omitempty,dive"`
}

func (f settlementForm) input() (CreateSettlementInput, error) {
	contactID, err := uuid.Parse(f.ContactID)
	if err != nil {
		return CreateSettlementInput{}, fmt.Errorf("%w: contact_id must be a UUID", httpx.ErrValidation)
	}
	settleAccountID, err := uuid.Parse(f.SettleAccountID)
	if err != nil {
		return CreateSettlementInput{}, fmt.Errorf("%w: settle_account_id must be a UUID", httpx.ErrValidation)
	}
	settleDate, err := parseFormDate(f.SettleDate)
	if err != nil {
		return CreateSettlementInput{}, fmt.Errorf("%w: settle_date must be YYYY-MM-DD", httpx.ErrValidation)
	}
	amount, err := decimal.NewFromString(f.Amount)
	if err != nil {
		return CreateSettlementInput{}, fmt.Errorf("%w: invalid amount %q", httpx.ErrValidation, f.Amount)
	}
	allocs, err := parseAllocationForms(f.Allocations)
	if err != nil {
		return CreateSettlementInput{}, err
	}
	return CreateSettlementInput{
		ContactID:       contactID,
		SettleDate:      settleDate,
		Amount:          amount,
		SettleAccountID: settleAccountID,
		Memo:            f.Memo,
		Allocations:     allocs,
	}, nil
}

func parseFormDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

type docResponse struct {
	Doc   *Doc      `json:"doc"`
	Lines []DocLine `json:"lines"`
}

type settlementResponse struct {
	Settlement  *Settlement  `json:"settlement"`
	Allocations []Allocation `json:"allocations"`
}
