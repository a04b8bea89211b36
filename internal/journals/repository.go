package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// TxRepository is the transaction-scoped surface the engine works against.
// Other domains (trade documents, banking) embed it in their own tx
// interfaces so document posting and journal posting commit atomically.
type TxRepository interface {
	GetEntryForUpdate(ctx context.Context, companyID, entryID uuid.UUID) (*Entry, error)
	InsertEntry(ctx context.Context, entry *Entry) error
	UpdateEntry(ctx context.Context, entry *Entry) error
	ReplaceEntryLines(ctx context.Context, entryID uuid.UUID, lines []Line) error
	ListEntryLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error)
	ActiveAccounts(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	NextSequenceValue(ctx context.Context, companyID uuid.UUID, key string) (int64, error)
}

// Repository provides journal persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, companyID, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Entry, error)
	ListLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error)
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
		return fn(ctx, NewPGTxRepository(tx))
	})
}

const entryColumns = `id, company_id, entry_no, status, entry_date, description,
	reference_type, reference_id, posted_at, posted_by, voided_at, voided_by, created_at, updated_at`

const lineColumns = `id, company_id, journal_entry_id, line_no, account_id, description, debit, credit, created_at`

func (r *pgRepository) GetEntry(ctx context.Context, companyID, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM journal_entry WHERE id = $1 AND company_id = $2`, id, companyID)
	return scanEntry(row)
}

func (r *pgRepository) ListEntries(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entry WHERE company_id = $1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(` AND entry_date >= $%d`, len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(` AND entry_date <= $%d`, len(args))
	}
	query += ` ORDER BY entry_date DESC, created_at DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journals: list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *pgRepository) ListLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lineColumns+` FROM journal_line WHERE company_id = $1 AND journal_entry_id = $2 ORDER BY line_no`,
		companyID, entryID)
	if err != nil {
		return nil, fmt.Errorf("journals: list lines: %w", err)
	}
	defer rows.Close()
	return collectLines(rows)
}

// PGTxRepository implements TxRepository over an open pgx transaction. It is
// exported so other domains can embed it into their own tx repositories.
type PGTxRepository struct {
	tx pgx.Tx
}

// NewPGTxRepository wraps an open transaction.
func NewPGTxRepository(tx pgx.Tx) *PGTxRepository {
	return &PGTxRepository{tx: tx}
}

func (r *PGTxRepository) GetEntryForUpdate(ctx context.Context, companyID, entryID uuid.UUID) (*Entry, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM journal_entry WHERE id = $1 AND company_id = $2 FOR UPDATE`,
		entryID, companyID)
	return scanEntry(row)
}

func (r *PGTxRepository) InsertEntry(ctx context.Context, e *Entry) error {
	var refType *ReferenceType
	var refID *uuid.UUID
	if e.Reference != nil {
		refType = &e.Reference.Type
		refID = &e.Reference.ID
	}
	_, err := r.tx.Exec(ctx,
		`INSERT INTO journal_entry (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.CompanyID, e.EntryNo, e.Status, e.EntryDate, e.Description,
		refType, refID, e.PostedAt, e.PostedBy, e.VoidedAt, e.VoidedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("journals: insert entry: %w", err)
	}
	return nil
}

func (r *PGTxRepository) UpdateEntry(ctx context.Context, e *Entry) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE journal_entry
		 SET entry_no = $3, status = $4, entry_date = $5, description = $6,
		     posted_at = $7, posted_by = $8, voided_at = $9, voided_by = $10, updated_at = $11
		 WHERE id = $1 AND company_id = $2`,
		e.ID, e.CompanyID, e.EntryNo, e.Status, e.EntryDate, e.Description,
		e.PostedAt, e.PostedBy, e.VoidedAt, e.VoidedBy, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("journals: update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal entry", httpx.ErrNotFound)
	}
	return nil
}

func (r *PGTxRepository) ReplaceEntryLines(ctx context.Context, entryID uuid.UUID, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_line WHERE journal_entry_id = $1`, entryID); err != nil {
		return fmt.Errorf("journals: delete lines: %w", err)
	}
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx,
			`INSERT INTO journal_line (`+lineColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			line.ID, line.CompanyID, line.EntryID, line.LineNo, line.AccountID,
			line.Description, line.Debit, line.Credit, line.CreatedAt); err != nil {
			return fmt.Errorf("journals: insert line: %w", err)
		}
	}
	return nil
}

func (r *PGTxRepository) ListEntryLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+lineColumns+` FROM journal_line WHERE company_id = $1 AND journal_entry_id = $2 ORDER BY line_no`,
		companyID, entryID)
	if err != nil {
		return nil, fmt.Errorf("journals: list lines: %w", err)
	}
	defer rows.Close()
	return collectLines(rows)
}

func (r *PGTxRepository) ActiveAccounts(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id FROM account WHERE company_id = $1 AND is_active AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("journals: active accounts: %w", err)
	}
	defer rows.Close()

	active := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = true
	}
	return active, rows.Err()
}

func (r *PGTxRepository) NextSequenceValue(ctx context.Context, companyID uuid.UUID, key string) (int64, error) {
	return accounting.NextSequenceValue(ctx, r.tx, companyID, key)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var refType *ReferenceType
	var refID *uuid.UUID
	if err := row.Scan(&e.ID, &e.CompanyID, &e.EntryNo, &e.Status, &e.EntryDate, &e.Description,
		&refType, &refID, &e.PostedAt, &e.PostedBy, &e.VoidedAt, &e.VoidedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: journal entry", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("journals: scan entry: %w", err)
	}
	if refType != nil && refID != nil {
		e.Reference = &Reference{Type: *refType, ID: *refID}
	}
	return &e, nil
}

func collectLines(rows pgx.Rows) ([]Line, error) {
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.EntryID, &l.LineNo, &l.AccountID,
			&l.Description, &l.Debit, &l.Credit, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
