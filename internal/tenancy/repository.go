package tenancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/rbac"
)

// Repository persists companies and memberships.
type Repository interface {
	CreateCompany(ctx context.Context, company *Company, ownerID int64) error
	ListCompaniesForUser(ctx context.Context, userID int64) ([]Company, error)
	GetMembership(ctx context.Context, companyID uuid.UUID, userID int64) (*Member, *Company, error)
	ListMembers(ctx context.Context, companyID uuid.UUID) ([]Member, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// CreateCompany inserts the company and bootstraps membership, default roles
// and the owner assignment in one transaction.
func (r *pgRepository) CreateCompany(ctx context.Context, company *Company, ownerID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now()
		company.ID = uuid.New()
		company.CreatedAt = now
		company.UpdatedAt = now

		if _, err := tx.Exec(ctx,
			`INSERT INTO companies (id, name, slug, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			company.ID, company.Name, company.Slug, company.CreatedAt, company.UpdatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: company slug %q", httpx.ErrDuplicate, company.Slug)
			}
			return fmt.Errorf("tenancy: insert company: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO company_members (company_id, user_id, status, created_at) VALUES ($1, $2, $3, $4)`,
			company.ID, ownerID, MemberStatusActive, now); err != nil {
			return fmt.Errorf("tenancy: insert member: %w", err)
		}

		for _, code := range rbac.AllPermissions() {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permission (code, description) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
				code, code); err != nil {
				return fmt.Errorf("tenancy: ensure permission: %w", err)
			}
		}

		for roleName, codes := range rbac.DefaultRolePermissions {
			roleID := uuid.New()
			if _, err := tx.Exec(ctx,
				`INSERT INTO company_role (id, company_id, name, is_system, created_at, updated_at)
				 VALUES ($1, $2, $3, TRUE, $4, $4)`,
				roleID, company.ID, roleName, now); err != nil {
				return fmt.Errorf("tenancy: insert role: %w", err)
			}
			for _, code := range codes {
				if _, err := tx.Exec(ctx,
					`INSERT INTO company_role_permission (role_id, permission_code) VALUES ($1, $2)`,
					roleID, code); err != nil {
					return fmt.Errorf("tenancy: grant role permission: %w", err)
				}
			}
			if roleName == rbac.RoleOwner {
				if _, err := tx.Exec(ctx,
					`INSERT INTO company_role_assignment (company_id, user_id, role_id) VALUES ($1, $2, $3)`,
					company.ID, ownerID, roleID); err != nil {
					return fmt.Errorf("tenancy: assign owner: %w", err)
				}
			}
		}
		return nil
	})
}

func (r *pgRepository) ListCompaniesForUser(ctx context.Context, userID int64) ([]Company, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.slug, c.created_at, c.updated_at
		 FROM companies c
		 JOIN company_members m ON m.company_id = c.id
		 WHERE m.user_id = $1 AND m.status = $2
		 ORDER BY c.name`, userID, MemberStatusActive)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *pgRepository) GetMembership(ctx context.Context, companyID uuid.UUID, userID int64) (*Member, *Company, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT m.company_id, m.user_id, m.status, m.created_at,
		        c.id, c.name, c.slug, c.created_at, c.updated_at
		 FROM company_members m
		 JOIN companies c ON c.id = m.company_id
		 WHERE m.company_id = $1 AND m.user_id = $2`, companyID, userID)

	var m Member
	var c Company
	if err := row.Scan(&m.CompanyID, &m.UserID, &m.Status, &m.CreatedAt,
		&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, httpx.ErrNotFound
		}
		return nil, nil, fmt.Errorf("tenancy: get membership: %w", err)
	}
	return &m, &c, nil
}

func (r *pgRepository) ListMembers(ctx context.Context, companyID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT company_id, user_id, status, created_at FROM company_members WHERE company_id = $1 ORDER BY user_id`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.CompanyID, &m.UserID, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
