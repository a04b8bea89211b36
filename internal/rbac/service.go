package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Service answers permission questions against the rbac tables.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// HasPermission reports whether the user holds the permission in the company.
func (s *Service) HasPermission(ctx context.Context, userID int64, companyID uuid.UUID, code string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM company_role_assignment a
			JOIN company_role_permission rp ON rp.role_id = a.role_id
			WHERE a.company_id = $1 AND a.user_id = $2 AND rp.permission_code = $3
		)`
	var ok bool
	if err := s.pool.QueryRow(ctx, query, companyID, userID, code).Scan(&ok); err != nil {
		return false, fmt.Errorf("rbac: has permission: %w", err)
	}
	return ok, nil
}

// EffectivePermissions returns the distinct permission codes granted to the
// user within the company.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64, companyID uuid.UUID) ([]string, error) {
	const query = `
		SELECT DISTINCT rp.permission_code
		FROM company_role_assignment a
		JOIN company_role_permission rp ON rp.role_id = a.role_id
		WHERE a.company_id = $1 AND a.user_id = $2
		ORDER BY rp.permission_code`
	rows, err := s.pool.Query(ctx, query, companyID, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: effective permissions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Role is a named permission bundle scoped to a company.
type Role struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsSystem bool      `json:"is_system"`
}

// ListRoles returns the roles defined for a company.
func (s *Service) ListRoles(ctx context.Context, companyID uuid.UUID) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, is_system FROM company_role WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.IsSystem); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// UserGrants summarises the caller's roles and permissions in a company.
type UserGrants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// GrantsFor returns role names and permission codes for a member.
func (s *Service) GrantsFor(ctx context.Context, userID int64, companyID uuid.UUID) (*UserGrants, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT r.name
		 FROM company_role_assignment a
		 JOIN company_role r ON r.id = a.role_id
		 WHERE a.company_id = $1 AND a.user_id = $2
		 ORDER BY r.name`, companyID, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: grants: %w", err)
	}
	defer rows.Close()

	grants := &UserGrants{Roles: []string{}, Permissions: []string{}}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		grants.Roles = append(grants.Roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perms, err := s.EffectivePermissions(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	if perms != nil {
		grants.Permissions = perms
	}
	return grants, nil
}

// AssignRole grants a role to a user within the company.
func (s *Service) AssignRole(ctx context.Context, companyID uuid.UUID, userID int64, roleID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO company_role_assignment (company_id, user_id, role_id)
		 SELECT $1, $2, id FROM company_role WHERE id = $3 AND company_id = $1
		 ON CONFLICT (company_id, user_id, role_id) DO NOTHING`,
		companyID, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac: assign role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the role does not exist in this company or the grant
		// already exists; re-check to produce the right error.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM company_role WHERE id = $1 AND company_id = $2)`,
			roleID, companyID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: role", httpx.ErrNotFound)
		}
	}
	return nil
}

// RevokeRole removes a role grant.
func (s *Service) RevokeRole(ctx context.Context, companyID uuid.UUID, userID int64, roleID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM company_role_assignment WHERE company_id = $1 AND user_id = $2 AND role_id = $3`,
		companyID, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac: revoke role: %w", err)
	}
	return nil
}
