package trade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// ReplaceDocLines wholesale-replaces the lines of a draft document and
// recomputes its totals. Line totals are quantity * unit_price rounded to 4
// places; tax is not modeled so total equals subtotal.
func (c Config) ReplaceDocLines(ctx context.Context, tx TxRepository, doc *Doc, inputs []DocLineInput) ([]DocLine, error) {
	if doc.Status != DocDraft {
		return nil, fmt.Errorf("%w: only draft %ss can be edited", httpx.ErrValidation, c.DocNoun)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one %s line is required", httpx.ErrValidation, c.DocNoun)
	}

	accountIDs := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		if input.AccountID == uuid.Nil {
			return nil, fmt.Errorf("%w: %s line requires an account", httpx.ErrValidation, c.DocNoun)
		}
		if input.Quantity.IsNegative() || input.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: quantity and unit price cannot be negative", httpx.ErrValidation)
		}
		accountIDs = append(accountIDs, input.AccountID)
	}
	active, err := tx.ActiveAccounts(ctx, doc.CompanyID, accountIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	subtotal := decimal.Zero
	lines := make([]DocLine, 0, len(inputs))
	for i, input := range inputs {
		if !active[input.AccountID] {
			return nil, fmt.Errorf("%w: account %s not available in this company", httpx.ErrValidation, input.AccountID)
		}
		lineNo := input.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		lineTotal := shared.Quantize(input.Quantity.Mul(input.UnitPrice))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, DocLine{
			ID:          uuid.New(),
			CompanyID:   doc.CompanyID,
			DocID:       doc.ID,
			LineNo:      lineNo,
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			LineTotal:   lineTotal,
			AccountID:   input.AccountID,
			CreatedAt:   now,
		})
	}
	if err := tx.ReplaceDocLines(ctx, doc.ID, lines); err != nil {
		return nil, err
	}

	doc.Subtotal = subtotal
	doc.TaxTotal = decimal.Zero
	doc.Total = subtotal
	doc.UpdatedAt = now
	if err := tx.UpdateDoc(ctx, doc); err != nil {
		return nil, err
	}
	return lines, nil
}

// PostDoc posts a draft document: issues a document number, builds the
// journal entry (control account against the per-line accounts) and posts it
// through the journal engine.
func (c Config) PostDoc(ctx context.Context, tx TxRepository, doc *Doc, actorID int64) error {
	if doc.Status != DocDraft {
		return fmt.Errorf("%w: only draft %ss can be posted", httpx.ErrValidation, c.DocNoun)
	}
	lines, err := tx.ListDocLines(ctx, doc.CompanyID, doc.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: %s has no lines", httpx.ErrValidation, c.DocNoun)
	}
	if !doc.Total.IsPositive() {
		return fmt.Errorf("%w: %s total must be positive", httpx.ErrValidation, c.DocNoun)
	}

	if doc.DocNo == nil {
		n, err := tx.NextSequenceValue(ctx, doc.CompanyID, c.DocSequenceKey)
		if err != nil {
			return err
		}
		doc.DocNo = &n
	}

	entry, err := c.journalEntryFor(ctx, tx, doc.CompanyID, doc.JournalEntryID, journals.Reference{
		Type: c.DocReference, ID: doc.ID,
	}, doc.DocDate, fmt.Sprintf("%s #%d", titleNoun(c.DocNoun), *doc.DocNo))
	if err != nil {
		return err
	}
	doc.JournalEntryID = &entry.ID

	inputs := make([]journals.LineInput, 0, len(lines)+1)
	control := journals.LineInput{LineNo: 1, AccountID: doc.ControlAccountID, Description: doc.Memo}
	if c.docDebitsControl() {
		control.Debit = doc.Total
	} else {
		control.Credit = doc.Total
	}
	inputs = append(inputs, control)
	for i, line := range lines {
		input := journals.LineInput{LineNo: i + 2, AccountID: line.AccountID, Description: line.Description}
		if c.docDebitsControl() {
			input.Credit = line.LineTotal
		} else {
			input.Debit = line.LineTotal
		}
		inputs = append(inputs, input)
	}
	if _, err := journals.ReplaceLines(ctx, tx, entry, inputs); err != nil {
		return err
	}
	if err := journals.Post(ctx, tx, entry, actorID); err != nil {
		return err
	}

	now := time.Now()
	doc.Status = DocPosted
	doc.UpdatedAt = now
	return tx.UpdateDoc(ctx, doc)
}

// VoidDoc voids a document that has no settled amount. The linked journal
// entry is voided, producing a posted reversal.
func (c Config) VoidDoc(ctx context.Context, tx TxRepository, doc *Doc, actorID int64) error {
	if doc.Status != DocPosted && doc.Status != DocPartiallyPaid {
		return fmt.Errorf("%w: only posted %ss can be voided", httpx.ErrValidation, c.DocNoun)
	}
	if doc.AmountPaid.IsPositive() {
		return fmt.Errorf("%w: %s has settled amounts and cannot be voided", httpx.ErrValidation, c.DocNoun)
	}
	if doc.JournalEntryID != nil {
		entry, err := tx.GetEntryForUpdate(ctx, doc.CompanyID, *doc.JournalEntryID)
		if err != nil {
			return err
		}
		if _, err := journals.Void(ctx, tx, entry, actorID); err != nil {
			return err
		}
	}
	doc.Status = DocVoid
	doc.UpdatedAt = time.Now()
	return tx.UpdateDoc(ctx, doc)
}

// ReplaceAllocations wholesale-replaces the allocations of a draft settlement
// after validating each target document.
func (c Config) ReplaceAllocations(ctx context.Context, tx TxRepository, settlement *Settlement, inputs []AllocationInput) ([]Allocation, error) {
	if settlement.Status != SettlementDraft {
		return nil, fmt.Errorf("%w: only draft %ss can be edited", httpx.ErrValidation, c.SettlementNoun)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one allocation is required", httpx.ErrValidation)
	}

	now := time.Now()
	seen := make(map[uuid.UUID]bool, len(inputs))
	total := decimal.Zero
	allocs := make([]Allocation, 0, len(inputs))
	for _, input := range inputs {
		if seen[input.DocID] {
			return nil, fmt.Errorf("%w: duplicate allocation for %s %s", httpx.ErrValidation, c.DocNoun, input.DocID)
		}
		seen[input.DocID] = true
		doc, err := tx.GetDocForUpdate(ctx, settlement.CompanyID, input.DocID)
		if err != nil {
			return nil, err
		}
		// The quantized amount is what gets stored, so it is also what
		// gets validated.
		amount := shared.Quantize(input.Amount)
		if err := c.allocatable(settlement, doc, amount); err != nil {
			return nil, err
		}
		total = total.Add(amount)
		allocs = append(allocs, Allocation{
			ID:           uuid.New(),
			CompanyID:    settlement.CompanyID,
			SettlementID: settlement.ID,
			DocID:        input.DocID,
			Amount:       amount,
			CreatedAt:    now,
		})
	}
	if total.GreaterThan(settlement.Amount) {
		return nil, fmt.Errorf("%w: allocations %s exceed %s amount %s",
			httpx.ErrValidation, total.String(), c.SettlementNoun, settlement.Amount.String())
	}
	if err := tx.ReplaceAllocations(ctx, settlement.ID, allocs); err != nil {
		return nil, err
	}
	settlement.UpdatedAt = now
	if err := tx.UpdateSettlement(ctx, settlement); err != nil {
		return nil, err
	}
	return allocs, nil
}

func (c Config) allocatable(settlement *Settlement, doc *Doc, amount decimal.Decimal) error {
	if doc.ContactID != settlement.ContactID {
		return fmt.Errorf("%w: %s %s belongs to a different contact", httpx.ErrValidation, c.DocNoun, doc.ID)
	}
	if doc.Status != DocPosted && doc.Status != DocPartiallyPaid {
		return fmt.Errorf("%w: %s %s is not open for settlement", httpx.ErrValidation, c.DocNoun, doc.ID)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: allocation amount must be positive", httpx.ErrValidation)
	}
	if amount.GreaterThan(doc.OpenAmount()) {
		return fmt.Errorf("%w: allocation %s exceeds open amount %s of %s %s",
			httpx.ErrValidation, amount.String(), doc.OpenAmount().String(), c.DocNoun, doc.ID)
	}
	return nil
}

// PostSettlement posts a draft settlement: re-validates allocations under
// row locks, issues a settlement number, posts the journal entry (settle
// account against the target documents' control accounts, coalesced per
// account) and applies the settled amounts.
func (c Config) PostSettlement(ctx context.Context, tx TxRepository, settlement *Settlement, actorID int64) error {
	if settlement.Status != SettlementDraft {
		return fmt.Errorf("%w: only draft %ss can be posted", httpx.ErrValidation, c.SettlementNoun)
	}
	allocs, err := tx.ListAllocations(ctx, settlement.CompanyID, settlement.ID)
	if err != nil {
		return err
	}
	if len(allocs) == 0 {
		return fmt.Errorf("%w: %s has no allocations", httpx.ErrValidation, c.SettlementNoun)
	}

	total := decimal.Zero
	docs := make([]*Doc, 0, len(allocs))
	controlTotals := make(map[uuid.UUID]decimal.Decimal)
	for _, alloc := range allocs {
		doc, err := tx.GetDocForUpdate(ctx, settlement.CompanyID, alloc.DocID)
		if err != nil {
			return err
		}
		if err := c.allocatable(settlement, doc, alloc.Amount); err != nil {
			return err
		}
		total = total.Add(alloc.Amount)
		docs = append(docs, doc)
		controlTotals[doc.ControlAccountID] = controlTotals[doc.ControlAccountID].Add(alloc.Amount)
	}
	if total.GreaterThan(settlement.Amount) {
		return fmt.Errorf("%w: allocations %s exceed %s amount %s",
			httpx.ErrValidation, total.String(), c.SettlementNoun, settlement.Amount.String())
	}

	if settlement.DocNo == nil {
		n, err := tx.NextSequenceValue(ctx, settlement.CompanyID, c.SettlementSequenceKey)
		if err != nil {
			return err
		}
		settlement.DocNo = &n
	}

	entry, err := c.journalEntryFor(ctx, tx, settlement.CompanyID, settlement.JournalEntryID, journals.Reference{
		Type: c.SettlementReference, ID: settlement.ID,
	}, settlement.SettleDate, fmt.Sprintf("%s #%d", titleNoun(c.SettlementNoun), *settlement.DocNo))
	if err != nil {
		return err
	}
	settlement.JournalEntryID = &entry.ID

	inputs := make([]journals.LineInput, 0, len(controlTotals)+1)
	settle := journals.LineInput{LineNo: 1, AccountID: settlement.SettleAccountID, Description: settlement.Memo}
	if c.docDebitsControl() {
		settle.Debit = total
	} else {
		settle.Credit = total
	}
	inputs = append(inputs, settle)
	for i, accountID := range sortedAccountIDs(controlTotals) {
		input := journals.LineInput{LineNo: i + 2, AccountID: accountID}
		if c.docDebitsControl() {
			input.Credit = controlTotals[accountID]
		} else {
			input.Debit = controlTotals[accountID]
		}
		inputs = append(inputs, input)
	}
	if _, err := journals.ReplaceLines(ctx, tx, entry, inputs); err != nil {
		return err
	}
	if err := journals.Post(ctx, tx, entry, actorID); err != nil {
		return err
	}

	now := time.Now()
	for i, doc := range docs {
		doc.AmountPaid = doc.AmountPaid.Add(allocs[i].Amount)
		doc.Status = paymentStatus(doc)
		doc.UpdatedAt = now
		if err := tx.UpdateDoc(ctx, doc); err != nil {
			return err
		}
	}
	settlement.Status = SettlementPosted
	settlement.UpdatedAt = now
	return tx.UpdateSettlement(ctx, settlement)
}

// VoidSettlement voids a posted settlement: the journal entry is voided and
// the settled amounts are rolled back off the target documents.
func (c Config) VoidSettlement(ctx context.Context, tx TxRepository, settlement *Settlement, actorID int64) error {
	if settlement.Status != SettlementPosted {
		return fmt.Errorf("%w: only posted %ss can be voided", httpx.ErrValidation, c.SettlementNoun)
	}
	if settlement.JournalEntryID == nil {
		return fmt.Errorf("%w: %s has no journal entry", httpx.ErrValidation, c.SettlementNoun)
	}
	entry, err := tx.GetEntryForUpdate(ctx, settlement.CompanyID, *settlement.JournalEntryID)
	if err != nil {
		return err
	}
	if _, err := journals.Void(ctx, tx, entry, actorID); err != nil {
		return err
	}

	allocs, err := tx.ListAllocations(ctx, settlement.CompanyID, settlement.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, alloc := range allocs {
		doc, err := tx.GetDocForUpdate(ctx, settlement.CompanyID, alloc.DocID)
		if err != nil {
			return err
		}
		doc.AmountPaid = doc.AmountPaid.Sub(alloc.Amount)
		if doc.AmountPaid.IsNegative() {
			doc.AmountPaid = decimal.Zero
		}
		doc.Status = paymentStatus(doc)
		doc.UpdatedAt = now
		if err := tx.UpdateDoc(ctx, doc); err != nil {
			return err
		}
	}
	settlement.Status = SettlementVoid
	settlement.UpdatedAt = now
	return tx.UpdateSettlement(ctx, settlement)
}

// journalEntryFor reuses the linked draft entry or creates a fresh one.
func (c Config) journalEntryFor(ctx context.Context, tx TxRepository, companyID uuid.UUID, linked *uuid.UUID, ref journals.Reference, date time.Time, description string) (*journals.Entry, error) {
	if linked != nil {
		return tx.GetEntryForUpdate(ctx, companyID, *linked)
	}
	now := time.Now()
	entry := &journals.Entry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Status:      journals.StatusDraft,
		EntryDate:   date,
		Description: description,
		Reference:   &ref,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// paymentStatus derives a posted document's status from its settled amount.
func paymentStatus(doc *Doc) DocStatus {
	switch {
	case !doc.AmountPaid.IsPositive():
		return DocPosted
	case doc.AmountPaid.LessThan(doc.Total):
		return DocPartiallyPaid
	default:
		return DocPaid
	}
}

func sortedAccountIDs(totals map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func titleNoun(noun string) string {
	if noun == "" {
		return noun
	}
	out := []rune(noun)
	if out[0] >= 'a' && out[0] <= 'z' {
		out[0] -= 'a' - 'A'
	}
	return string(out)
}
