package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LineFilter narrows the posted lines a report reads.
type LineFilter struct {
	Period      Period
	AccountID   *uuid.UUID
	Limit       int
	NewestFirst bool
}

// LineSource yields posted journal lines joined with their accounts.
type LineSource interface {
	PostedLines(ctx context.Context, companyID uuid.UUID, filter LineFilter) ([]PostedLine, error)
}

type pgLineSource struct {
	pool *pgxpool.Pool
}

// NewLineSource constructs a postgres-backed LineSource.
func NewLineSource(pool *pgxpool.Pool) LineSource {
	return &pgLineSource{pool: pool}
}

func (r *pgLineSource) PostedLines(ctx context.Context, companyID uuid.UUID, filter LineFilter) ([]PostedLine, error) {
	query := `SELECT l.account_id, a.code, a.name, a.type,
		       e.id, e.entry_no, e.entry_date, l.description, l.debit, l.credit
		FROM journal_line l
		JOIN journal_entry e ON e.id = l.journal_entry_id
		JOIN account a ON a.id = l.account_id
		WHERE l.company_id = $1 AND e.status = 'posted'`
	args := []any{companyID}
	if !filter.Period.Start.IsZero() {
		args = append(args, filter.Period.Start)
		query += fmt.Sprintf(` AND e.entry_date >= $%d`, len(args))
	}
	if !filter.Period.End.IsZero() {
		args = append(args, filter.Period.End)
		query += fmt.Sprintf(` AND e.entry_date <= $%d`, len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(` AND l.account_id = $%d`, len(args))
	}
	if filter.NewestFirst {
		query += ` ORDER BY e.entry_date DESC, e.entry_no DESC, l.line_no`
	} else {
		query += ` ORDER BY e.entry_date, e.entry_no, l.line_no`
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: posted lines: %w", err)
	}
	defer rows.Close()

	var lines []PostedLine
	for rows.Next() {
		var l PostedLine
		if err := rows.Scan(&l.AccountID, &l.AccountCode, &l.AccountName, &l.AccountType,
			&l.EntryID, &l.EntryNo, &l.EntryDate, &l.Description, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
