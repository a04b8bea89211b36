package banking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryRepo struct {
	bankAccounts    map[uuid.UUID]*BankAccount
	imports         map[uuid.UUID]*StatementImport
	transactions    map[uuid.UUID]*BankTransaction
	reconciliations map[uuid.UUID]*Reconciliation
	lines           map[uuid.UUID][]ReconciliationLine
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bankAccounts:    make(map[uuid.UUID]*BankAccount),
		imports:         make(map[uuid.UUID]*StatementImport),
		transactions:    make(map[uuid.UUID]*BankTransaction),
		reconciliations: make(map[uuid.UUID]*Reconciliation),
		lines:           make(map[uuid.UUID][]ReconciliationLine),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) CreateBankAccount(_ context.Context, a *BankAccount) error {
	cp := *a
	m.bankAccounts[a.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateBankAccount(_ context.Context, a *BankAccount) error {
	if _, ok := m.bankAccounts[a.ID]; !ok {
		return fmt.Errorf("%w: bank account", httpx.ErrNotFound)
	}
	cp := *a
	m.bankAccounts[a.ID] = &cp
	return nil
}

func (m *memoryRepo) GetBankAccount(_ context.Context, companyID, id uuid.UUID) (*BankAccount, error) {
	a, ok := m.bankAccounts[id]
	if !ok || a.CompanyID != companyID {
		return nil, fmt.Errorf("%w: bank account", httpx.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memoryRepo) ListBankAccounts(_ context.Context, companyID uuid.UUID) ([]BankAccount, error) {
	var out []BankAccount
	for _, a := range m.bankAccounts {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryRepo) LedgerAccountIDs(_ context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, a := range m.bankAccounts {
		if a.CompanyID == companyID {
			ids = append(ids, a.LedgerAccountID)
		}
	}
	return ids, nil
}

func (m *memoryRepo) InsertImport(_ context.Context, imp *StatementImport) error {
	cp := *imp
	m.imports[imp.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateImport(_ context.Context, imp *StatementImport) error {
	if _, ok := m.imports[imp.ID]; !ok {
		return fmt.Errorf("%w: statement import", httpx.ErrNotFound)
	}
	cp := *imp
	m.imports[imp.ID] = &cp
	return nil
}

func (m *memoryRepo) GetImport(_ context.Context, companyID, id uuid.UUID) (*StatementImport, error) {
	imp, ok := m.imports[id]
	if !ok || imp.CompanyID != companyID {
		return nil, fmt.Errorf("%w: statement import", httpx.ErrNotFound)
	}
	cp := *imp
	return &cp, nil
}

func (m *memoryRepo) ListImports(_ context.Context, companyID, bankAccountID uuid.UUID) ([]StatementImport, error) {
	var out []StatementImport
	for _, imp := range m.imports {
		if imp.CompanyID == companyID && imp.BankAccountID == bankAccountID {
			out = append(out, *imp)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertTransactions(_ context.Context, txns []BankTransaction) error {
	for _, t := range txns {
		cp := t
		m.transactions[t.ID] = &cp
	}
	return nil
}

func (m *memoryRepo) GetTransaction(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error) {
	return m.GetTransactionForUpdate(ctx, companyID, id)
}

func (m *memoryRepo) GetTransactionForUpdate(_ context.Context, companyID, id uuid.UUID) (*BankTransaction, error) {
	t, ok := m.transactions[id]
	if !ok || t.CompanyID != companyID {
		return nil, fmt.Errorf("%w: bank transaction", httpx.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) UpdateTransaction(_ context.Context, t *BankTransaction) error {
	if _, ok := m.transactions[t.ID]; !ok {
		return fmt.Errorf("%w: bank transaction", httpx.ErrNotFound)
	}
	cp := *t
	m.transactions[t.ID] = &cp
	return nil
}

func (m *memoryRepo) ListTransactions(_ context.Context, companyID, bankAccountID uuid.UUID, status TransactionStatus) ([]BankTransaction, error) {
	var out []BankTransaction
	for _, t := range m.transactions {
		if t.CompanyID != companyID || t.BankAccountID != bankAccountID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memoryRepo) GetReconciliation(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error) {
	return m.GetReconciliationForUpdate(ctx, companyID, id)
}

func (m *memoryRepo) GetReconciliationForUpdate(_ context.Context, companyID, id uuid.UUID) (*Reconciliation, error) {
	rec, ok := m.reconciliations[id]
	if !ok || rec.CompanyID != companyID {
		return nil, fmt.Errorf("%w: reconciliation", httpx.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *memoryRepo) InsertReconciliation(_ context.Context, rec *Reconciliation) error {
	cp := *rec
	m.reconciliations[rec.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateReconciliation(_ context.Context, rec *Reconciliation) error {
	if _, ok := m.reconciliations[rec.ID]; !ok {
		return fmt.Errorf("%w: reconciliation", httpx.ErrNotFound)
	}
	cp := *rec
	m.reconciliations[rec.ID] = &cp
	return nil
}

func (m *memoryRepo) ReplaceReconciliationLines(_ context.Context, reconciliationID uuid.UUID, lines []ReconciliationLine) error {
	m.lines[reconciliationID] = append([]ReconciliationLine(nil), lines...)
	return nil
}

func (m *memoryRepo) ListReconciliationLines(_ context.Context, _, reconciliationID uuid.UUID) ([]ReconciliationLine, error) {
	return append([]ReconciliationLine(nil), m.lines[reconciliationID]...), nil
}

func (m *memoryRepo) ListReconciliations(_ context.Context, companyID, bankAccountID uuid.UUID) ([]Reconciliation, error) {
	var out []Reconciliation
	for _, rec := range m.reconciliations {
		if rec.CompanyID == companyID && rec.BankAccountID == bankAccountID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkTransactionsReconciled(_ context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		if t, ok := m.transactions[id]; ok && t.CompanyID == companyID {
			t.Status = TransactionReconciled
		}
	}
	return nil
}

type staticEntries struct {
	byID map[uuid.UUID]*journals.Entry
}

func (s *staticEntries) add(companyID uuid.UUID, status journals.Status) uuid.UUID {
	if s.byID == nil {
		s.byID = make(map[uuid.UUID]*journals.Entry)
	}
	id := uuid.New()
	s.byID[id] = &journals.Entry{ID: id, CompanyID: companyID, Status: status}
	return id
}

func (s *staticEntries) GetEntry(_ context.Context, companyID, id uuid.UUID) (*journals.Entry, error) {
	entry, ok := s.byID[id]
	if !ok || entry.CompanyID != companyID {
		return nil, fmt.Errorf("%w: journal entry", httpx.ErrNotFound)
	}
	return entry, nil
}

type staticAccounts struct {
	byID map[uuid.UUID]*accounting.Account
}

func (s *staticAccounts) add(companyID uuid.UUID, active bool) uuid.UUID {
	if s.byID == nil {
		s.byID = make(map[uuid.UUID]*accounting.Account)
	}
	id := uuid.New()
	s.byID[id] = &accounting.Account{ID: id, CompanyID: companyID, IsActive: active}
	return id
}

func (s *staticAccounts) GetAccount(_ context.Context, companyID, id uuid.UUID) (*accounting.Account, error) {
	account, ok := s.byID[id]
	if !ok || account.CompanyID != companyID {
		return nil, fmt.Errorf("%w: account", httpx.ErrNotFound)
	}
	return account, nil
}

type bankFixture struct {
	repo      *memoryRepo
	entries   *staticEntries
	accounts  *staticAccounts
	svc       *Service
	companyID uuid.UUID
	account   *BankAccount
}

func newBankFixture(t *testing.T) *bankFixture {
	t.Helper()
	repo := newMemoryRepo()
	entries := &staticEntries{}
	accounts := &staticAccounts{}
	companyID := uuid.New()
	svc := NewService(repo, entries, accounts, nil)

	ledgerID := accounts.add(companyID, true)
	account, err := svc.CreateBankAccount(context.Background(), companyID, 1, BankAccountInput{
		Name:            "Operating",
		LedgerAccountID: ledgerID,
	})
	require.NoError(t, err)
	return &bankFixture{repo: repo, entries: entries, accounts: accounts, svc: svc, companyID: companyID, account: account}
}

func TestParseStatementCreatesTransactions(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	content := "date,description,amount\n2026-08-01,Deposit,100.00\n2026-08-02,Fees,-5.25\n"
	imp, err := f.svc.ParseStatement(ctx, f.companyID, 1, f.account.ID, "aug.csv", content)
	require.NoError(t, err)
	require.Equal(t, ImportParsed, imp.Status)
	require.Equal(t, 2, imp.RowCount)
	require.Empty(t, imp.ErrorMessage)

	txns, err := f.svc.ListTransactions(ctx, f.companyID, f.account.ID, TransactionImported)
	require.NoError(t, err)
	require.Len(t, txns, 2)
}

func TestParseStatementFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	imp, err := f.svc.ParseStatement(ctx, f.companyID, 1, f.account.ID, "bad.csv", "description\nonly\n")
	require.ErrorContains(t, err, "CSV must include date/txn_date and amount columns.")
	require.NotNil(t, imp)
	require.Equal(t, ImportFailed, imp.Status)
	require.Equal(t, "CSV must include date/txn_date and amount columns.", imp.ErrorMessage)

	stored, err := f.repo.GetImport(ctx, f.companyID, imp.ID)
	require.NoError(t, err)
	require.Equal(t, ImportFailed, stored.Status)
}

func TestMatchTransactionValidations(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	content := "date,amount\n2026-08-01,100.00\n"
	_, err := f.svc.ParseStatement(ctx, f.companyID, 1, f.account.ID, "a.csv", content)
	require.NoError(t, err)
	txns, err := f.svc.ListTransactions(ctx, f.companyID, f.account.ID, "")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	txn := txns[0]

	draftEntry := f.entries.add(f.companyID, journals.StatusDraft)
	_, err = f.svc.MatchTransaction(ctx, f.companyID, txn.ID, draftEntry, 1)
	require.ErrorContains(t, err, "not posted")

	foreignEntry := f.entries.add(uuid.New(), journals.StatusPosted)
	_, err = f.svc.MatchTransaction(ctx, f.companyID, txn.ID, foreignEntry, 1)
	require.ErrorContains(t, err, "journal entry")

	postedEntry := f.entries.add(f.companyID, journals.StatusPosted)
	matched, err := f.svc.MatchTransaction(ctx, f.companyID, txn.ID, postedEntry, 1)
	require.NoError(t, err)
	require.Equal(t, TransactionMatched, matched.Status)
	require.Equal(t, postedEntry, *matched.MatchedEntryID)
}

func TestFinalizeRequiresLines(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	rec, err := f.svc.CreateReconciliation(ctx, f.companyID, 1, ReconciliationInput{
		BankAccountID:  f.account.ID,
		StartDate:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		ClosingBalance: decimal.New(100, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.FinalizeReconciliation(ctx, f.companyID, rec.ID, 1)
	require.ErrorContains(t, err, "has no lines")
}

func TestFinalizeReconcilesTransactions(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	content := "date,amount\n2026-08-15,100.00\n"
	_, err := f.svc.ParseStatement(ctx, f.companyID, 1, f.account.ID, "a.csv", content)
	require.NoError(t, err)
	txns, err := f.svc.ListTransactions(ctx, f.companyID, f.account.ID, "")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	rec, err := f.svc.CreateReconciliation(ctx, f.companyID, 1, ReconciliationInput{
		BankAccountID: f.account.ID,
		StartDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, lines, err := f.svc.ReplaceReconciliationLines(ctx, f.companyID, rec.ID, 1, []uuid.UUID{txns[0].ID})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	finalized, err := f.svc.FinalizeReconciliation(ctx, f.companyID, rec.ID, 1)
	require.NoError(t, err)
	require.Equal(t, ReconciliationFinalized, finalized.Status)
	require.NotNil(t, finalized.FinalizedAt)
	require.Equal(t, int64(1), *finalized.FinalizedBy)

	updated, err := f.svc.ListTransactions(ctx, f.companyID, f.account.ID, TransactionReconciled)
	require.NoError(t, err)
	require.Len(t, updated, 1)

	_, err = f.svc.FinalizeReconciliation(ctx, f.companyID, rec.ID, 1)
	require.ErrorContains(t, err, "only draft reconciliations")
}

func TestReplaceLinesRejectsOutOfRangeTransaction(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	content := "date,amount\n2026-09-15,100.00\n"
	_, err := f.svc.ParseStatement(ctx, f.companyID, 1, f.account.ID, "a.csv", content)
	require.NoError(t, err)
	txns, err := f.svc.ListTransactions(ctx, f.companyID, f.account.ID, "")
	require.NoError(t, err)

	rec, err := f.svc.CreateReconciliation(ctx, f.companyID, 1, ReconciliationInput{
		BankAccountID: f.account.ID,
		StartDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, _, err = f.svc.ReplaceReconciliationLines(ctx, f.companyID, rec.ID, 1, []uuid.UUID{txns[0].ID})
	require.ErrorContains(t, err, "outside the reconciliation period")
}

func TestCreateBankAccountRequiresActiveLedgerAccount(t *testing.T) {
	ctx := context.Background()
	f := newBankFixture(t)

	inactive := f.accounts.add(f.companyID, false)
	_, err := f.svc.CreateBankAccount(ctx, f.companyID, 1, BankAccountInput{
		Name:            "Savings",
		LedgerAccountID: inactive,
	})
	require.ErrorContains(t, err, "inactive")
}
