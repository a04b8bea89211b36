package accounting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NextSequenceValue issues the next number for (company, key) inside the
// caller's transaction. The sequence row is created lazily with next_value 1
// and locked with FOR UPDATE, so concurrent callers always receive distinct
// values. Numbers are never recycled; gaps are fine.
func NextSequenceValue(ctx context.Context, tx pgx.Tx, companyID uuid.UUID, key string) (int64, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO number_sequence (id, company_id, key, next_value)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (company_id, key) DO NOTHING`,
		uuid.New(), companyID, key); err != nil {
		return 0, fmt.Errorf("accounting: ensure sequence %s: %w", key, err)
	}

	var value int64
	if err := tx.QueryRow(ctx,
		`SELECT next_value FROM number_sequence WHERE company_id = $1 AND key = $2 FOR UPDATE`,
		companyID, key).Scan(&value); err != nil {
		return 0, fmt.Errorf("accounting: lock sequence %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE number_sequence SET next_value = next_value + 1 WHERE company_id = $1 AND key = $2`,
		companyID, key); err != nil {
		return 0, fmt.Errorf("accounting: advance sequence %s: %w", key, err)
	}
	return value, nil
}
