package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Repository persists accounts.
type Repository interface {
	CreateAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, companyID, id uuid.UUID) error
	GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]Account, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const accountColumns = `id, company_id, code, name, type, normal_balance, parent_id, is_active, is_system, created_at, updated_at`

func (r *pgRepository) CreateAccount(ctx context.Context, a *Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.CompanyID, a.Code, a.Name, a.Type, a.NormalBalance, a.ParentID, a.IsActive, a.IsSystem, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: account code %q already exists", httpx.ErrDuplicate, a.Code)
		}
		return fmt.Errorf("accounting: insert account: %w", err)
	}
	return nil
}

func (r *pgRepository) UpdateAccount(ctx context.Context, a *Account) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE account SET code = $3, name = $4, type = $5, normal_balance = $6, parent_id = $7, is_active = $8, updated_at = $9
		 WHERE id = $1 AND company_id = $2`,
		a.ID, a.CompanyID, a.Code, a.Name, a.Type, a.NormalBalance, a.ParentID, a.IsActive, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: account code %q already exists", httpx.ErrDuplicate, a.Code)
		}
		return fmt.Errorf("accounting: update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account", httpx.ErrNotFound)
	}
	return nil
}

// DeleteAccount removes an account; a restrict violation (the account is
// referenced by journal lines or documents) surfaces as a validation error.
func (r *pgRepository) DeleteAccount(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM account WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: account is referenced and cannot be deleted", httpx.ErrValidation)
		}
		return fmt.Errorf("accounting: delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account", httpx.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = $1 AND company_id = $2`, id, companyID)
	var a Account
	if err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("accounting: get account: %w", err)
	}
	return &a, nil
}

func (r *pgRepository) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM account WHERE company_id = $1 ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("accounting: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
