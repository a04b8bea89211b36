package banking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// EntrySource resolves journal entries for transaction matching. The
// journals repository satisfies it.
type EntrySource interface {
	GetEntry(ctx context.Context, companyID, id uuid.UUID) (*journals.Entry, error)
}

// AccountSource resolves ledger accounts. The accounting repository
// satisfies it.
type AccountSource interface {
	GetAccount(ctx context.Context, companyID, id uuid.UUID) (*accounting.Account, error)
}

// Service drives statement imports and reconciliation.
type Service struct {
	repo     Repository
	entries  EntrySource
	accounts AccountSource
	audit    shared.AuditPort
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, entries EntrySource, accounts AccountSource, audit shared.AuditPort) *Service {
	return &Service{repo: repo, entries: entries, accounts: accounts, audit: audit, now: time.Now}
}

// BankAccountInput carries the fields for creating or updating an account.
type BankAccountInput struct {
	Name            string
	Currency        string
	LedgerAccountID uuid.UUID
	IsActive        *bool
}

// CreateBankAccount registers a bank account linked to an active ledger
// account of the same company.
func (s *Service) CreateBankAccount(ctx context.Context, companyID uuid.UUID, actorID int64, input BankAccountInput) (*BankAccount, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: bank account name is required", httpx.ErrValidation)
	}
	if err := s.checkLedgerAccount(ctx, companyID, input.LedgerAccountID); err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	now := s.now()
	account := &BankAccount{
		ID:              uuid.New(),
		CompanyID:       companyID,
		Name:            strings.TrimSpace(input.Name),
		Currency:        currency,
		LedgerAccountID: input.LedgerAccountID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateBankAccount(ctx, account); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "bank_account.create", "bank_account", account.ID)
	return account, nil
}

// UpdateBankAccount changes name, currency, ledger link, or active flag.
func (s *Service) UpdateBankAccount(ctx context.Context, companyID, id uuid.UUID, actorID int64, input BankAccountInput) (*BankAccount, error) {
	account, err := s.repo.GetBankAccount(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) != "" {
		account.Name = strings.TrimSpace(input.Name)
	}
	if input.Currency != "" {
		account.Currency = input.Currency
	}
	if input.LedgerAccountID != uuid.Nil && input.LedgerAccountID != account.LedgerAccountID {
		if err := s.checkLedgerAccount(ctx, companyID, input.LedgerAccountID); err != nil {
			return nil, err
		}
		account.LedgerAccountID = input.LedgerAccountID
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	account.UpdatedAt = s.now()
	if err := s.repo.UpdateBankAccount(ctx, account); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "bank_account.update", "bank_account", account.ID)
	return account, nil
}

// GetBankAccount fetches one bank account.
func (s *Service) GetBankAccount(ctx context.Context, companyID, id uuid.UUID) (*BankAccount, error) {
	return s.repo.GetBankAccount(ctx, companyID, id)
}

// ListBankAccounts returns the company's bank accounts.
func (s *Service) ListBankAccounts(ctx context.Context, companyID uuid.UUID) ([]BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, companyID)
}

// ParseStatement stores the upload and parses it into bank transactions. A
// parse failure still persists the import with status failed and the error
// message, then surfaces the validation error.
func (s *Service) ParseStatement(ctx context.Context, companyID uuid.UUID, actorID int64, bankAccountID uuid.UUID, filename, content string) (*StatementImport, error) {
	if _, err := s.repo.GetBankAccount(ctx, companyID, bankAccountID); err != nil {
		return nil, err
	}

	now := s.now()
	imp := &StatementImport{
		ID:            uuid.New(),
		CompanyID:     companyID,
		BankAccountID: bankAccountID,
		Status:        ImportUploaded,
		Filename:      filename,
		RawContent:    content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var parseErr error
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertImport(ctx, imp); err != nil {
			return err
		}
		rows, err := ParseCSV(content)
		if err != nil {
			imp.Status = ImportFailed
			imp.ErrorMessage = validationDetail(err)
			imp.UpdatedAt = s.now()
			parseErr = err
			return tx.UpdateImport(ctx, imp)
		}

		txns := make([]BankTransaction, 0, len(rows))
		for _, row := range rows {
			txns = append(txns, BankTransaction{
				ID:            uuid.New(),
				CompanyID:     companyID,
				BankAccountID: bankAccountID,
				ImportID:      &imp.ID,
				TxnDate:       row.TxnDate,
				Description:   row.Description,
				Reference:     row.Reference,
				Amount:        shared.Quantize(row.Amount),
				Status:        TransactionImported,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := tx.InsertTransactions(ctx, txns); err != nil {
			return err
		}
		imp.Status = ImportParsed
		imp.ErrorMessage = ""
		imp.RowCount = len(txns)
		imp.UpdatedAt = s.now()
		return tx.UpdateImport(ctx, imp)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "statement.import", "statement_import", imp.ID)
	if parseErr != nil {
		return imp, parseErr
	}
	return imp, nil
}

// MatchTransaction links a bank transaction to a posted journal entry of the
// same company.
func (s *Service) MatchTransaction(ctx context.Context, companyID, transactionID, entryID uuid.UUID, actorID int64) (*BankTransaction, error) {
	entry, err := s.entries.GetEntry(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != journals.StatusPosted {
		return nil, fmt.Errorf("%w: journal entry is not posted", httpx.ErrValidation)
	}

	var txn *BankTransaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransactionForUpdate(ctx, companyID, transactionID)
		if err != nil {
			return err
		}
		if current.Status == TransactionReconciled {
			return fmt.Errorf("%w: reconciled transactions cannot be rematched", httpx.ErrValidation)
		}
		current.Status = TransactionMatched
		current.MatchedEntryID = &entryID
		current.UpdatedAt = s.now()
		if err := tx.UpdateTransaction(ctx, current); err != nil {
			return err
		}
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "transaction.match", "bank_transaction", transactionID)
	return txn, nil
}

// IgnoreTransaction marks an unreconciled transaction ignored.
func (s *Service) IgnoreTransaction(ctx context.Context, companyID, transactionID uuid.UUID, actorID int64) (*BankTransaction, error) {
	var txn *BankTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransactionForUpdate(ctx, companyID, transactionID)
		if err != nil {
			return err
		}
		if current.Status == TransactionReconciled {
			return fmt.Errorf("%w: reconciled transactions cannot be ignored", httpx.ErrValidation)
		}
		current.Status = TransactionIgnored
		current.MatchedEntryID = nil
		current.UpdatedAt = s.now()
		if err := tx.UpdateTransaction(ctx, current); err != nil {
			return err
		}
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "transaction.ignore", "bank_transaction", transactionID)
	return txn, nil
}

// ListTransactions returns transactions for one bank account.
func (s *Service) ListTransactions(ctx context.Context, companyID, bankAccountID uuid.UUID, status TransactionStatus) ([]BankTransaction, error) {
	return s.repo.ListTransactions(ctx, companyID, bankAccountID, status)
}

// ListImports returns statement imports for one bank account.
func (s *Service) ListImports(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]StatementImport, error) {
	return s.repo.ListImports(ctx, companyID, bankAccountID)
}

// ReconciliationInput carries the fields for a new draft reconciliation.
type ReconciliationInput struct {
	BankAccountID  uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// CreateReconciliation opens a draft reconciliation over a date range.
func (s *Service) CreateReconciliation(ctx context.Context, companyID uuid.UUID, actorID int64, input ReconciliationInput) (*Reconciliation, error) {
	if _, err := s.repo.GetBankAccount(ctx, companyID, input.BankAccountID); err != nil {
		return nil, err
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", httpx.ErrValidation)
	}
	now := s.now()
	rec := &Reconciliation{
		ID:             uuid.New(),
		CompanyID:      companyID,
		BankAccountID:  input.BankAccountID,
		Status:         ReconciliationDraft,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		OpeningBalance: shared.Quantize(input.OpeningBalance),
		ClosingBalance: shared.Quantize(input.ClosingBalance),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertReconciliation(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "reconciliation.create", "reconciliation", rec.ID)
	return rec, nil
}

// ReplaceReconciliationLines wholesale-replaces the lines of a draft
// reconciliation. Every transaction must belong to the same company and bank
// account with txn_date inside the reconciliation range.
func (s *Service) ReplaceReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID, actorID int64, transactionIDs []uuid.UUID) (*Reconciliation, []ReconciliationLine, error) {
	var rec *Reconciliation
	var lines []ReconciliationLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetReconciliationForUpdate(ctx, companyID, reconciliationID)
		if err != nil {
			return err
		}
		if current.Status != ReconciliationDraft {
			return fmt.Errorf("%w: only draft reconciliations can be edited", httpx.ErrValidation)
		}

		now := s.now()
		seen := make(map[uuid.UUID]bool, len(transactionIDs))
		fresh := make([]ReconciliationLine, 0, len(transactionIDs))
		for _, txnID := range transactionIDs {
			if seen[txnID] {
				return fmt.Errorf("%w: duplicate transaction %s", httpx.ErrValidation, txnID)
			}
			seen[txnID] = true
			txn, err := tx.GetTransactionForUpdate(ctx, companyID, txnID)
			if err != nil {
				return err
			}
			if txn.BankAccountID != current.BankAccountID {
				return fmt.Errorf("%w: transaction %s belongs to another bank account", httpx.ErrValidation, txnID)
			}
			if txn.TxnDate.Before(truncateDay(current.StartDate)) || txn.TxnDate.After(endOfDay(current.EndDate)) {
				return fmt.Errorf("%w: transaction %s is outside the reconciliation period", httpx.ErrValidation, txnID)
			}
			fresh = append(fresh, ReconciliationLine{
				ID:                uuid.New(),
				CompanyID:         companyID,
				ReconciliationID:  current.ID,
				BankTransactionID: txnID,
				CreatedAt:         now,
			})
		}
		if err := tx.ReplaceReconciliationLines(ctx, current.ID, fresh); err != nil {
			return err
		}
		current.UpdatedAt = now
		if err := tx.UpdateReconciliation(ctx, current); err != nil {
			return err
		}
		rec = current
		lines = fresh
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, actorID, companyID, "reconciliation.replace_lines", "reconciliation", reconciliationID)
	return rec, lines, nil
}

// FinalizeReconciliation reconciles every referenced transaction and locks
// the reconciliation.
func (s *Service) FinalizeReconciliation(ctx context.Context, companyID, reconciliationID uuid.UUID, actorID int64) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetReconciliationForUpdate(ctx, companyID, reconciliationID)
		if err != nil {
			return err
		}
		if current.Status != ReconciliationDraft {
			return fmt.Errorf("%w: only draft reconciliations can be finalized", httpx.ErrValidation)
		}
		lines, err := tx.ListReconciliationLines(ctx, companyID, current.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: reconciliation has no lines", httpx.ErrValidation)
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.BankTransactionID)
		}
		if err := tx.MarkTransactionsReconciled(ctx, companyID, ids); err != nil {
			return err
		}

		now := s.now()
		current.Status = ReconciliationFinalized
		current.FinalizedAt = &now
		current.FinalizedBy = &actorID
		current.UpdatedAt = now
		if err := tx.UpdateReconciliation(ctx, current); err != nil {
			return err
		}
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "reconciliation.finalize", "reconciliation", reconciliationID)
	return rec, nil
}

// GetReconciliation fetches one reconciliation.
func (s *Service) GetReconciliation(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error) {
	return s.repo.GetReconciliation(ctx, companyID, id)
}

// ListReconciliations returns reconciliations for one bank account.
func (s *Service) ListReconciliations(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]Reconciliation, error) {
	return s.repo.ListReconciliations(ctx, companyID, bankAccountID)
}

// ListReconciliationLines returns the lines of one reconciliation.
func (s *Service) ListReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error) {
	if _, err := s.repo.GetReconciliation(ctx, companyID, reconciliationID); err != nil {
		return nil, err
	}
	return s.repo.ListReconciliationLines(ctx, companyID, reconciliationID)
}

func (s *Service) checkLedgerAccount(ctx context.Context, companyID, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return fmt.Errorf("%w: ledger account is required", httpx.ErrValidation)
	}
	account, err := s.accounts.GetAccount(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return fmt.Errorf("%w: ledger account %s is inactive", httpx.ErrValidation, accountID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, companyID uuid.UUID, action, entity string, entityID uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID.String(),
		At:        s.now(),
	})
}

// validationDetail strips the sentinel prefix for storage in error_message.
func validationDetail(err error) string {
	msg := err.Error()
	prefix := httpx.ErrValidation.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}
