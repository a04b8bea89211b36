package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// The engine functions operate on an open transaction so callers (the trade
// engine, the HTTP service) can compose journal work with their own writes
// and roll everything back together.

// ValidateLineInput enforces the one-sided line rule at creation time.
func ValidateLineInput(input LineInput) error {
	if input.AccountID == uuid.Nil {
		return fmt.Errorf("%w: journal line requires an account", httpx.ErrValidation)
	}
	if input.Debit.IsNegative() || input.Credit.IsNegative() {
		return fmt.Errorf("%w: journal line amounts cannot be negative", httpx.ErrValidation)
	}
	debitSet := input.Debit.IsPositive()
	creditSet := input.Credit.IsPositive()
	if debitSet == creditSet {
		return fmt.Errorf("%w: journal line must have exactly one of debit or credit", httpx.ErrValidation)
	}
	return nil
}

// AssertBalanced verifies sum(debit) == sum(credit) with both sums positive.
// The comparison is exact decimal equality.
func AssertBalanced(lines []Line) error {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return fmt.Errorf("%w: journal entry is not balanced (debit %s, credit %s)",
			httpx.ErrValidation, totalDebit.String(), totalCredit.String())
	}
	if !totalDebit.IsPositive() {
		return fmt.Errorf("%w: journal entry total must be positive", httpx.ErrValidation)
	}
	return nil
}

// ReplaceLines wholesale-replaces the lines of a draft entry. Accounts must
// exist in the entry's company and be active, and the new line set must
// balance; the caller's transaction rolls back when it does not.
func ReplaceLines(ctx context.Context, tx TxRepository, entry *Entry, inputs []LineInput) ([]Line, error) {
	if entry.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft journal entries can be edited", httpx.ErrValidation)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one journal line is required", httpx.ErrValidation)
	}

	// Validation runs on the quantized amounts so a value that rounds to
	// zero cannot slip through as a stored zero/zero line.
	accountIDs := make([]uuid.UUID, 0, len(inputs))
	quantized := make([]LineInput, 0, len(inputs))
	for _, input := range inputs {
		input.Debit = shared.Quantize(input.Debit)
		input.Credit = shared.Quantize(input.Credit)
		if err := ValidateLineInput(input); err != nil {
			return nil, err
		}
		quantized = append(quantized, input)
		accountIDs = append(accountIDs, input.AccountID)
	}
	active, err := tx.ActiveAccounts(ctx, entry.CompanyID, accountIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lines := make([]Line, 0, len(quantized))
	for i, input := range quantized {
		if !active[input.AccountID] {
			return nil, fmt.Errorf("%w: account %s not available in this company", httpx.ErrValidation, input.AccountID)
		}
		lineNo := input.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		lines = append(lines, Line{
			ID:          uuid.New(),
			CompanyID:   entry.CompanyID,
			EntryID:     entry.ID,
			LineNo:      lineNo,
			AccountID:   input.AccountID,
			Description: input.Description,
			Debit:       input.Debit,
			Credit:      input.Credit,
			CreatedAt:   now,
		})
	}
	if err := tx.ReplaceEntryLines(ctx, entry.ID, lines); err != nil {
		return nil, err
	}
	if err := AssertBalanced(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Post transitions a balanced draft entry to posted, assigning an entry
// number from the journal_entry sequence when the entry does not carry one.
func Post(ctx context.Context, tx TxRepository, entry *Entry, actorID int64) error {
	if entry.Status != StatusDraft {
		return fmt.Errorf("%w: only draft journal entries can be posted", httpx.ErrValidation)
	}
	lines, err := tx.ListEntryLines(ctx, entry.CompanyID, entry.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: journal entry has no lines", httpx.ErrValidation)
	}
	if err := AssertBalanced(lines); err != nil {
		return err
	}
	if entry.EntryNo == nil {
		n, err := tx.NextSequenceValue(ctx, entry.CompanyID, accounting.SequenceJournalEntry)
		if err != nil {
			return err
		}
		entry.EntryNo = &n
	}
	now := time.Now()
	entry.Status = StatusPosted
	entry.PostedAt = &now
	entry.PostedBy = &actorID
	entry.UpdatedAt = now
	return tx.UpdateEntry(ctx, entry)
}

// Void marks a posted entry void and creates a posted reversal entry with
// debit and credit mirrored, preserving line numbers. Returns the reversal.
func Void(ctx context.Context, tx TxRepository, entry *Entry, actorID int64) (*Entry, error) {
	if entry.Status != StatusPosted {
		return nil, fmt.Errorf("%w: only posted journal entries can be voided", httpx.ErrValidation)
	}
	lines, err := tx.ListEntryLines(ctx, entry.CompanyID, entry.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	description := "Reversal"
	if entry.EntryNo != nil {
		description = fmt.Sprintf("Reversal of JE #%d", *entry.EntryNo)
	}
	reversal := &Entry{
		ID:          uuid.New(),
		CompanyID:   entry.CompanyID,
		Status:      StatusDraft,
		EntryDate:   now,
		Description: description,
		Reference:   &Reference{Type: ReferenceJournalReversal, ID: entry.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertEntry(ctx, reversal); err != nil {
		return nil, err
	}

	mirrored := make([]Line, 0, len(lines))
	for _, line := range lines {
		mirrored = append(mirrored, Line{
			ID:          uuid.New(),
			CompanyID:   line.CompanyID,
			EntryID:     reversal.ID,
			LineNo:      line.LineNo,
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
			CreatedAt:   now,
		})
	}
	if err := tx.ReplaceEntryLines(ctx, reversal.ID, mirrored); err != nil {
		return nil, err
	}
	if err := Post(ctx, tx, reversal, actorID); err != nil {
		return nil, err
	}

	entry.Status = StatusVoid
	entry.VoidedAt = &now
	entry.VoidedBy = &actorID
	entry.UpdatedAt = now
	if err := tx.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return reversal, nil
}
