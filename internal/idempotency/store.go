// Package idempotency makes settlement endpoints safe to retry. Completed
// responses are stored per (company, scope, key) and replayed verbatim.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusCompleted marks a record whose response body can be replayed.
const StatusCompleted = "completed"

// Record is one stored idempotent response.
type Record struct {
	CompanyID    uuid.UUID
	Scope        string
	Key          string
	RequestHash  string
	Status       string
	ResponseBody []byte
	ExpiresAt    time.Time
}

// Store persists idempotency records in postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Lookup returns the unexpired record for (company, scope, key), or nil.
func (s *Store) Lookup(ctx context.Context, companyID uuid.UUID, scope, key string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT company_id, scope, key, request_hash, status, response_body, expires_at
		 FROM idempotency_record
		 WHERE company_id = $1 AND scope = $2 AND key = $3 AND expires_at > now()`,
		companyID, scope, key).
		Scan(&rec.CompanyID, &rec.Scope, &rec.Key, &rec.RequestHash, &rec.Status, &rec.ResponseBody, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency: lookup: %w", err)
	}
	return &rec, nil
}

// Complete upserts a completed record with its response body.
func (s *Store) Complete(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_record (company_id, scope, key, request_hash, status, response_body, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (company_id, scope, key) DO UPDATE
		 SET request_hash = EXCLUDED.request_hash, status = EXCLUDED.status,
		     response_body = EXCLUDED.response_body, expires_at = EXCLUDED.expires_at`,
		rec.CompanyID, rec.Scope, rec.Key, rec.RequestHash, StatusCompleted, rec.ResponseBody, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	return nil
}

// Purge removes expired records and reports how many were deleted.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_record WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("idempotency: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
