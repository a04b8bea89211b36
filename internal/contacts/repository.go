package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Repository persists contacts.
type Repository interface {
	Create(ctx context.Context, contact *Contact) error
	Update(ctx context.Context, contact *Contact) error
	Get(ctx context.Context, companyID, id uuid.UUID) (*Contact, error)
	List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Contact, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const contactColumns = `id, company_id, kind, name, email, phone, address, tax_id, is_active, created_at, updated_at`

func (r *pgRepository) Create(ctx context.Context, c *Contact) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contact (`+contactColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.CompanyID, c.Kind, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("contacts: insert: %w", err)
	}
	return nil
}

func (r *pgRepository) Update(ctx context.Context, c *Contact) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contact SET kind = $3, name = $4, email = $5, phone = $6, address = $7, tax_id = $8, is_active = $9, updated_at = $10
		 WHERE id = $1 AND company_id = $2`,
		c.ID, c.CompanyID, c.Kind, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.IsActive, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("contacts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contact", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, companyID, id uuid.UUID) (*Contact, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contact WHERE id = $1 AND company_id = $2`, id, companyID)
	var c Contact
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Kind, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: contact", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("contacts: get: %w", err)
	}
	return &c, nil
}

func (r *pgRepository) List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contact WHERE company_id = $1`
	args := []any{companyID}
	if kind != "" {
		query += ` AND (kind = $2 OR kind = 'both')`
		args = append(args, kind)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contacts: list: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Kind, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
