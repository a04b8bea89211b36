// Package audit exposes the per-company audit trail written by
// shared.AuditLogger.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one recorded mutation.
type Event struct {
	ActorID    int64          `json:"actor_id"`
	CompanyID  uuid.UUID      `json:"company_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ListFilter narrows the trail listing.
type ListFilter struct {
	Action string
	Entity string
	Limit  int
}

// Repository reads the audit trail.
type Repository interface {
	ListEvents(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Event, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListEvents(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Event, error) {
	query := `SELECT actor_id, company_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs WHERE company_id = $1`
	args := []any{companyID}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(` AND action = $%d`, len(args))
	}
	if filter.Entity != "" {
		args = append(args, filter.Entity)
		query += fmt.Sprintf(` AND entity = $%d`, len(args))
	}
	query += ` ORDER BY occurred_at DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ActorID, &e.CompanyID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
