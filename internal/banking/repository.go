package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// TxRepository is the transaction-scoped surface for imports and
// reconciliation, so a failed parse or finalize rolls back completely.
type TxRepository interface {
	InsertImport(ctx context.Context, imp *StatementImport) error
	UpdateImport(ctx context.Context, imp *StatementImport) error
	InsertTransactions(ctx context.Context, txns []BankTransaction) error
	GetTransactionForUpdate(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error)
	UpdateTransaction(ctx context.Context, txn *BankTransaction) error
	GetReconciliationForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error)
	InsertReconciliation(ctx context.Context, rec *Reconciliation) error
	UpdateReconciliation(ctx context.Context, rec *Reconciliation) error
	ReplaceReconciliationLines(ctx context.Context, reconciliationID uuid.UUID, lines []ReconciliationLine) error
	ListReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error)
	MarkTransactionsReconciled(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error
}

// Repository provides banking persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	CreateBankAccount(ctx context.Context, account *BankAccount) error
	UpdateBankAccount(ctx context.Context, account *BankAccount) error
	GetBankAccount(ctx context.Context, companyID, id uuid.UUID) (*BankAccount, error)
	ListBankAccounts(ctx context.Context, companyID uuid.UUID) ([]BankAccount, error)
	LedgerAccountIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)

	GetImport(ctx context.Context, companyID, id uuid.UUID) (*StatementImport, error)
	ListImports(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]StatementImport, error)

	GetTransaction(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error)
	ListTransactions(ctx context.Context, companyID, bankAccountID uuid.UUID, status TransactionStatus) ([]BankTransaction, error)

	GetReconciliation(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error)
	ListReconciliations(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]Reconciliation, error)
	ListReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const bankAccountColumns = `id, company_id, name, currency, ledger_account_id, is_active, created_at, updated_at`

const importColumns = `id, company_id, bank_account_id, status, filename, raw_content, error_message, row_count, created_at, updated_at`

const transactionColumns = `id, company_id, bank_account_id, import_id, txn_date, description, reference,
	amount, status, matched_entry_id, created_at, updated_at`

const reconciliationColumns = `id, company_id, bank_account_id, status, start_date, end_date,
	opening_balance, closing_balance, finalized_at, finalized_by, created_at, updated_at`

const reconciliationLineColumns = `id, company_id, reconciliation_id, bank_transaction_id, created_at`

func (r *pgRepository) CreateBankAccount(ctx context.Context, a *BankAccount) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bank_account (`+bankAccountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.CompanyID, a.Name, a.Currency, a.LedgerAccountID, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: create bank account: %w", err)
	}
	return nil
}

func (r *pgRepository) UpdateBankAccount(ctx context.Context, a *BankAccount) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bank_account SET name = $3, currency = $4, ledger_account_id = $5, is_active = $6, updated_at = $7
		 WHERE id = $1 AND company_id = $2`,
		a.ID, a.CompanyID, a.Name, a.Currency, a.LedgerAccountID, a.IsActive, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: update bank account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bank account", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) GetBankAccount(ctx context.Context, companyID, id uuid.UUID) (*BankAccount, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_account WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanBankAccount(row)
}

func (r *pgRepository) ListBankAccounts(ctx context.Context, companyID uuid.UUID) ([]BankAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_account WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("banking: list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []BankAccount
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *pgRepository) LedgerAccountIDs(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ledger_account_id FROM bank_account WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("banking: ledger account ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgRepository) GetImport(ctx context.Context, companyID, id uuid.UUID) (*StatementImport, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+importColumns+` FROM statement_import WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanImport(row)
}

func (r *pgRepository) ListImports(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]StatementImport, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+importColumns+` FROM statement_import
		 WHERE company_id = $1 AND bank_account_id = $2 ORDER BY created_at DESC`, companyID, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("banking: list imports: %w", err)
	}
	defer rows.Close()

	var imports []StatementImport
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, *imp)
	}
	return imports, rows.Err()
}

func (r *pgRepository) GetTransaction(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM bank_transaction WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanTransaction(row)
}

func (r *pgRepository) ListTransactions(ctx context.Context, companyID, bankAccountID uuid.UUID, status TransactionStatus) ([]BankTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM bank_transaction WHERE company_id = $1 AND bank_account_id = $2`
	args := []any{companyID, bankAccountID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY txn_date DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("banking: list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *pgRepository) GetReconciliation(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliation WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanReconciliation(row)
}

func (r *pgRepository) ListReconciliations(ctx context.Context, companyID, bankAccountID uuid.UUID) ([]Reconciliation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliation
		 WHERE company_id = $1 AND bank_account_id = $2 ORDER BY start_date DESC`, companyID, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("banking: list reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []Reconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (r *pgRepository) ListReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error) {
	return listReconciliationLines(ctx, r.pool, companyID, reconciliationID)
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) InsertImport(ctx context.Context, imp *StatementImport) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO statement_import (`+importColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		imp.ID, imp.CompanyID, imp.BankAccountID, imp.Status, imp.Filename, imp.RawContent,
		imp.ErrorMessage, imp.RowCount, imp.CreatedAt, imp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: insert import: %w", err)
	}
	return nil
}

func (r *pgTxRepository) UpdateImport(ctx context.Context, imp *StatementImport) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE statement_import
		 SET status = $3, error_message = $4, row_count = $5, updated_at = $6
		 WHERE id = $1 AND company_id = $2`,
		imp.ID, imp.CompanyID, imp.Status, imp.ErrorMessage, imp.RowCount, imp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: update import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: statement import", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) InsertTransactions(ctx context.Context, txns []BankTransaction) error {
	for _, t := range txns {
		if _, err := r.tx.Exec(ctx,
			`INSERT INTO bank_transaction (`+transactionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			t.ID, t.CompanyID, t.BankAccountID, t.ImportID, t.TxnDate, t.Description, t.Reference,
			t.Amount, t.Status, t.MatchedEntryID, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("banking: insert transaction: %w", err)
		}
	}
	return nil
}

func (r *pgTxRepository) GetTransactionForUpdate(ctx context.Context, companyID, id uuid.UUID) (*BankTransaction, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM bank_transaction
		 WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
	return scanTransaction(row)
}

func (r *pgTxRepository) UpdateTransaction(ctx context.Context, t *BankTransaction) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE bank_transaction
		 SET status = $3, matched_entry_id = $4, updated_at = $5
		 WHERE id = $1 AND company_id = $2`,
		t.ID, t.CompanyID, t.Status, t.MatchedEntryID, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bank transaction", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) GetReconciliationForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Reconciliation, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliation
		 WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
	return scanReconciliation(row)
}

func (r *pgTxRepository) InsertReconciliation(ctx context.Context, rec *Reconciliation) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO reconciliation (`+reconciliationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.CompanyID, rec.BankAccountID, rec.Status, rec.StartDate, rec.EndDate,
		rec.OpeningBalance, rec.ClosingBalance, rec.FinalizedAt, rec.FinalizedBy, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: insert reconciliation: %w", err)
	}
	return nil
}

func (r *pgTxRepository) UpdateReconciliation(ctx context.Context, rec *Reconciliation) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE reconciliation
		 SET status = $3, start_date = $4, end_date = $5, opening_balance = $6, closing_balance = $7,
		     finalized_at = $8, finalized_by = $9, updated_at = $10
		 WHERE id = $1 AND company_id = $2`,
		rec.ID, rec.CompanyID, rec.Status, rec.StartDate, rec.EndDate, rec.OpeningBalance,
		rec.ClosingBalance, rec.FinalizedAt, rec.FinalizedBy, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("banking: update reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reconciliation", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) ReplaceReconciliationLines(ctx context.Context, reconciliationID uuid.UUID, lines []ReconciliationLine) error {
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM reconciliation_line WHERE reconciliation_id = $1`, reconciliationID); err != nil {
		return fmt.Errorf("banking: delete reconciliation lines: %w", err)
	}
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx,
			`INSERT INTO reconciliation_line (`+reconciliationLineColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			line.ID, line.CompanyID, line.ReconciliationID, line.BankTransactionID, line.CreatedAt); err != nil {
			return fmt.Errorf("banking: insert reconciliation line: %w", err)
		}
	}
	return nil
}

func (r *pgTxRepository) ListReconciliationLines(ctx context.Context, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error) {
	return listReconciliationLines(ctx, r.tx, companyID, reconciliationID)
}

func (r *pgTxRepository) MarkTransactionsReconciled(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE bank_transaction SET status = 'reconciled', updated_at = now()
		 WHERE company_id = $1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return fmt.Errorf("banking: mark reconciled: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listReconciliationLines(ctx context.Context, q querier, companyID, reconciliationID uuid.UUID) ([]ReconciliationLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+reconciliationLineColumns+` FROM reconciliation_line
		 WHERE company_id = $1 AND reconciliation_id = $2 ORDER BY created_at`, companyID, reconciliationID)
	if err != nil {
		return nil, fmt.Errorf("banking: list reconciliation lines: %w", err)
	}
	defer rows.Close()

	var lines []ReconciliationLine
	for rows.Next() {
		var l ReconciliationLine
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.ReconciliationID, &l.BankTransactionID, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanBankAccount(row pgx.Row) (*BankAccount, error) {
	var a BankAccount
	if err := row.Scan(&a.ID, &a.CompanyID, &a.Name, &a.Currency, &a.LedgerAccountID,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: bank account", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("banking: scan bank account: %w", err)
	}
	return &a, nil
}

func scanImport(row pgx.Row) (*StatementImport, error) {
	var imp StatementImport
	if err := row.Scan(&imp.ID, &imp.CompanyID, &imp.BankAccountID, &imp.Status, &imp.Filename,
		&imp.RawContent, &imp.ErrorMessage, &imp.RowCount, &imp.CreatedAt, &imp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: statement import", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("banking: scan import: %w", err)
	}
	return &imp, nil
}

func scanTransaction(row pgx.Row) (*BankTransaction, error) {
	var t BankTransaction
	if err := row.Scan(&t.ID, &t.CompanyID, &t.BankAccountID, &t.ImportID, &t.TxnDate, &t.Description,
		&t.Reference, &t.Amount, &t.Status, &t.MatchedEntryID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: bank transaction", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("banking: scan transaction: %w", err)
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]BankTransaction, error) {
	var txns []BankTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func scanReconciliation(row pgx.Row) (*Reconciliation, error) {
	var rec Reconciliation
	if err := row.Scan(&rec.ID, &rec.CompanyID, &rec.BankAccountID, &rec.Status, &rec.StartDate,
		&rec.EndDate, &rec.OpeningBalance, &rec.ClosingBalance, &rec.FinalizedAt, &rec.FinalizedBy,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: reconciliation", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("banking: scan reconciliation: %w", err)
	}
	return &rec, nil
}
