package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// TxRepository is the transaction-scoped surface the document engine works
// against. It embeds the journal tx surface so document posting and journal
// posting commit or roll back together.
type TxRepository interface {
	journals.TxRepository

	GetDocForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Doc, error)
	InsertDoc(ctx context.Context, doc *Doc) error
	UpdateDoc(ctx context.Context, doc *Doc) error
	ReplaceDocLines(ctx context.Context, docID uuid.UUID, lines []DocLine) error
	ListDocLines(ctx context.Context, companyID, docID uuid.UUID) ([]DocLine, error)

	GetSettlementForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Settlement, error)
	InsertSettlement(ctx context.Context, s *Settlement) error
	UpdateSettlement(ctx context.Context, s *Settlement) error
	ReplaceAllocations(ctx context.Context, settlementID uuid.UUID, allocs []Allocation) error
	ListAllocations(ctx context.Context, companyID, settlementID uuid.UUID) ([]Allocation, error)
}

// Repository provides document persistence for one side.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDoc(ctx context.Context, companyID, id uuid.UUID) (*Doc, error)
	ListDocs(ctx context.Context, companyID uuid.UUID, filter DocFilter) ([]Doc, error)
	ListDocLines(ctx context.Context, companyID, docID uuid.UUID) ([]DocLine, error)
	GetSettlement(ctx context.Context, companyID, id uuid.UUID) (*Settlement, error)
	ListSettlements(ctx context.Context, companyID uuid.UUID, limit int) ([]Settlement, error)
	ListAllocations(ctx context.Context, companyID, settlementID uuid.UUID) ([]Allocation, error)
	OpenDocs(ctx context.Context, companyID uuid.UUID) ([]Doc, error)
}

// Tables names the four relations backing one side of the engine. Both sides
// share identical column layouts so the SQL below is written once.
type Tables struct {
	Doc        string
	DocLine    string
	Settlement string
	Allocation string
}

// ReceivableTables backs the sales side.
var ReceivableTables = Tables{
	Doc:        "invoice",
	DocLine:    "invoice_line",
	Settlement: "receipt",
	Allocation: "receipt_allocation",
}

// PayableTables backs the purchases side.
var PayableTables = Tables{
	Doc:        "bill",
	DocLine:    "bill_line",
	Settlement: "vendor_payment",
	Allocation: "vendor_payment_allocation",
}

type pgRepository struct {
	pool   *pgxpool.Pool
	tables Tables
	noun   string
}

// NewRepository constructs a postgres-backed Repository over the given tables.
func NewRepository(pool *pgxpool.Pool, tables Tables, docNoun string) Repository {
	return &pgRepository{pool: pool, tables: tables, noun: docNoun}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{
			PGTxRepository: journals.NewPGTxRepository(tx),
			tx:             tx,
			tables:         r.tables,
			noun:           r.noun,
		})
	})
}

const docColumns = `id, company_id, doc_no, status, contact_id, doc_date, due_date, currency,
	subtotal, tax_total, total, amount_paid, control_account_id, journal_entry_id, memo, created_at, updated_at`

const docLineColumns = `id, company_id, doc_id, line_no, description, quantity, unit_price, line_total, account_id, created_at`

const settlementColumns = `id, company_id, doc_no, status, contact_id, settle_date, amount,
	settle_account_id, journal_entry_id, memo, created_at, updated_at`

const allocationColumns = `id, company_id, settlement_id, doc_id, amount, created_at`

func (r *pgRepository) GetDoc(ctx context.Context, companyID, id uuid.UUID) (*Doc, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+docColumns+` FROM `+r.tables.Doc+` WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanDoc(row, r.noun)
}

func (r *pgRepository) ListDocs(ctx context.Context, companyID uuid.UUID, filter DocFilter) ([]Doc, error) {
	query := `SELECT ` + docColumns + ` FROM ` + r.tables.Doc + ` WHERE company_id = $1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.ContactID != nil {
		args = append(args, *filter.ContactID)
		query += fmt.Sprintf(` AND contact_id = $%d`, len(args))
	}
	query += ` ORDER BY doc_date DESC, created_at DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trade: list %ss: %w", r.noun, err)
	}
	defer rows.Close()
	return collectDocs(rows, r.noun)
}

func (r *pgRepository) ListDocLines(ctx context.Context, companyID, docID uuid.UUID) ([]DocLine, error) {
	return listDocLines(ctx, r.pool, r.tables, companyID, docID)
}

func (r *pgRepository) GetSettlement(ctx context.Context, companyID, id uuid.UUID) (*Settlement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM `+r.tables.Settlement+` WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanSettlement(row)
}

func (r *pgRepository) ListSettlements(ctx context.Context, companyID uuid.UUID, limit int) ([]Settlement, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+settlementColumns+` FROM `+r.tables.Settlement+`
		 WHERE company_id = $1 ORDER BY settle_date DESC, created_at DESC LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("trade: list settlements: %w", err)
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListAllocations(ctx context.Context, companyID, settlementID uuid.UUID) ([]Allocation, error) {
	return listAllocations(ctx, r.pool, r.tables, companyID, settlementID)
}

func (r *pgRepository) OpenDocs(ctx context.Context, companyID uuid.UUID) ([]Doc, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+docColumns+` FROM `+r.tables.Doc+`
		 WHERE company_id = $1 AND status IN ('posted', 'partially_paid', 'paid') AND total - amount_paid > 0
		 ORDER BY doc_date`, companyID)
	if err != nil {
		return nil, fmt.Errorf("trade: open %ss: %w", r.noun, err)
	}
	defer rows.Close()
	return collectDocs(rows, r.noun)
}

type pgTxRepository struct {
	*journals.PGTxRepository
	tx     pgx.Tx
	tables Tables
	noun   string
}

func (r *pgTxRepository) GetDocForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Doc, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+docColumns+` FROM `+r.tables.Doc+` WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
	return scanDoc(row, r.noun)
}

func (r *pgTxRepository) InsertDoc(ctx context.Context, d *Doc) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO `+r.tables.Doc+` (`+docColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		d.ID, d.CompanyID, d.DocNo, d.Status, d.ContactID, d.DocDate, d.DueDate, d.Currency,
		d.Subtotal, d.TaxTotal, d.Total, d.AmountPaid, d.ControlAccountID, d.JournalEntryID,
		d.Memo, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("trade: insert %s: %w", r.noun, err)
	}
	return nil
}

func (r *pgTxRepository) UpdateDoc(ctx context.Context, d *Doc) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE `+r.tables.Doc+`
		 SET doc_no = $3, status = $4, contact_id = $5, doc_date = $6, due_date = $7, currency = $8,
		     subtotal = $9, tax_total = $10, total = $11, amount_paid = $12,
		     control_account_id = $13, journal_entry_id = $14, memo = $15, updated_at = $16
		 WHERE id = $1 AND company_id = $2`,
		d.ID, d.CompanyID, d.DocNo, d.Status, d.ContactID, d.DocDate, d.DueDate, d.Currency,
		d.Subtotal, d.TaxTotal, d.Total, d.AmountPaid, d.ControlAccountID, d.JournalEntryID,
		d.Memo, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("trade: update %s: %w", r.noun, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, r.noun)
	}
	return nil
}

func (r *pgTxRepository) ReplaceDocLines(ctx context.Context, docID uuid.UUID, lines []DocLine) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM `+r.tables.DocLine+` WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("trade: delete %s lines: %w", r.noun, err)
	}
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx,
			`INSERT INTO `+r.tables.DocLine+` (`+docLineColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			line.ID, line.CompanyID, line.DocID, line.LineNo, line.Description,
			line.Quantity, line.UnitPrice, line.LineTotal, line.AccountID, line.CreatedAt); err != nil {
			return fmt.Errorf("trade: insert %s line: %w", r.noun, err)
		}
	}
	return nil
}

func (r *pgTxRepository) ListDocLines(ctx context.Context, companyID, docID uuid.UUID) ([]DocLine, error) {
	return listDocLines(ctx, r.tx, r.tables, companyID, docID)
}

func (r *pgTxRepository) GetSettlementForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Settlement, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM `+r.tables.Settlement+`
		 WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
	return scanSettlement(row)
}

func (r *pgTxRepository) InsertSettlement(ctx context.Context, s *Settlement) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO `+r.tables.Settlement+` (`+settlementColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.CompanyID, s.DocNo, s.Status, s.ContactID, s.SettleDate, s.Amount,
		s.SettleAccountID, s.JournalEntryID, s.Memo, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("trade: insert settlement: %w", err)
	}
	return nil
}

func (r *pgTxRepository) UpdateSettlement(ctx context.Context, s *Settlement) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE `+r.tables.Settlement+`
		 SET doc_no = $3, status = $4, contact_id = $5, settle_date = $6, amount = $7,
		     settle_account_id = $8, journal_entry_id = $9, memo = $10, updated_at = $11
		 WHERE id = $1 AND company_id = $2`,
		s.ID, s.CompanyID, s.DocNo, s.Status, s.ContactID, s.SettleDate, s.Amount,
		s.SettleAccountID, s.JournalEntryID, s.Memo, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("trade: update settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: settlement", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) ReplaceAllocations(ctx context.Context, settlementID uuid.UUID, allocs []Allocation) error {
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM `+r.tables.Allocation+` WHERE settlement_id = $1`, settlementID); err != nil {
		return fmt.Errorf("trade: delete allocations: %w", err)
	}
	for _, a := range allocs {
		if _, err := r.tx.Exec(ctx,
			`INSERT INTO `+r.tables.Allocation+` (`+allocationColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.CompanyID, a.SettlementID, a.DocID, a.Amount, a.CreatedAt); err != nil {
			return fmt.Errorf("trade: insert allocation: %w", err)
		}
	}
	return nil
}

func (r *pgTxRepository) ListAllocations(ctx context.Context, companyID, settlementID uuid.UUID) ([]Allocation, error) {
	return listAllocations(ctx, r.tx, r.tables, companyID, settlementID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listDocLines(ctx context.Context, q querier, tables Tables, companyID, docID uuid.UUID) ([]DocLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+docLineColumns+` FROM `+tables.DocLine+`
		 WHERE company_id = $1 AND doc_id = $2 ORDER BY line_no`, companyID, docID)
	if err != nil {
		return nil, fmt.Errorf("trade: list doc lines: %w", err)
	}
	defer rows.Close()

	var lines []DocLine
	for rows.Next() {
		var l DocLine
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.DocID, &l.LineNo, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.LineTotal, &l.AccountID, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func listAllocations(ctx context.Context, q querier, tables Tables, companyID, settlementID uuid.UUID) ([]Allocation, error) {
	rows, err := q.Query(ctx,
		`SELECT `+allocationColumns+` FROM `+tables.Allocation+`
		 WHERE company_id = $1 AND settlement_id = $2 ORDER BY created_at`, companyID, settlementID)
	if err != nil {
		return nil, fmt.Errorf("trade: list allocations: %w", err)
	}
	defer rows.Close()

	var allocs []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.SettlementID, &a.DocID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func scanDoc(row pgx.Row, noun string) (*Doc, error) {
	var d Doc
	if err := row.Scan(&d.ID, &d.CompanyID, &d.DocNo, &d.Status, &d.ContactID, &d.DocDate, &d.DueDate,
		&d.Currency, &d.Subtotal, &d.TaxTotal, &d.Total, &d.AmountPaid, &d.ControlAccountID,
		&d.JournalEntryID, &d.Memo, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", httpx.ErrNotFound, noun)
		}
		return nil, fmt.Errorf("trade: scan %s: %w", noun, err)
	}
	return &d, nil
}

func collectDocs(rows pgx.Rows, noun string) ([]Doc, error) {
	var docs []Doc
	for rows.Next() {
		doc, err := scanDoc(rows, noun)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanSettlement(row pgx.Row) (*Settlement, error) {
	var s Settlement
	if err := row.Scan(&s.ID, &s.CompanyID, &s.DocNo, &s.Status, &s.ContactID, &s.SettleDate,
		&s.Amount, &s.SettleAccountID, &s.JournalEntryID, &s.Memo, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: settlement", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("trade: scan settlement: %w", err)
	}
	return &s, nil
}
