package accounting

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryAccountRepo struct {
	accounts   map[uuid.UUID]*Account
	referenced map[uuid.UUID]bool
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{
		accounts:   make(map[uuid.UUID]*Account),
		referenced: make(map[uuid.UUID]bool),
	}
}

func (r *memoryAccountRepo) CreateAccount(ctx context.Context, a *Account) error {
	for _, existing := range r.accounts {
		if existing.CompanyID == a.CompanyID && existing.Code == a.Code {
			return fmt.Errorf("%w: account code %q already exists", httpx.ErrDuplicate, a.Code)
		}
	}
	clone := *a
	r.accounts[a.ID] = &clone
	return nil
}

func (r *memoryAccountRepo) UpdateAccount(ctx context.Context, a *Account) error {
	if _, ok := r.accounts[a.ID]; !ok {
		return httpx.ErrNotFound
	}
	clone := *a
	r.accounts[a.ID] = &clone
	return nil
}

func (r *memoryAccountRepo) DeleteAccount(ctx context.Context, companyID, id uuid.UUID) error {
	a, ok := r.accounts[id]
	if !ok || a.CompanyID != companyID {
		return httpx.ErrNotFound
	}
	if r.referenced[id] {
		return fmt.Errorf("%w: account is referenced and cannot be deleted", httpx.ErrValidation)
	}
	delete(r.accounts, id)
	return nil
}

func (r *memoryAccountRepo) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.CompanyID != companyID {
		return nil, fmt.Errorf("%w: account", httpx.ErrNotFound)
	}
	clone := *a
	return &clone, nil
}

func (r *memoryAccountRepo) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func TestCreateAccountDefaultsNormalBalance(t *testing.T) {
	service := NewService(newMemoryAccountRepo(), nil)
	companyID := uuid.New()

	asset, err := service.CreateAccount(context.Background(), companyID, 1, AccountInput{
		Code: "1000", Name: "Cash", Type: AccountTypeAsset,
	})
	require.NoError(t, err)
	require.Equal(t, NormalBalanceDebit, asset.NormalBalance)

	income, err := service.CreateAccount(context.Background(), companyID, 1, AccountInput{
		Code: "4000", Name: "Revenue", Type: AccountTypeIncome,
	})
	require.NoError(t, err)
	require.Equal(t, NormalBalanceCredit, income.NormalBalance)
}

func TestCreateAccountRejectsDuplicateCode(t *testing.T) {
	service := NewService(newMemoryAccountRepo(), nil)
	companyID := uuid.New()
	ctx := context.Background()

	_, err := service.CreateAccount(ctx, companyID, 1, AccountInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)

	_, err = service.CreateAccount(ctx, companyID, 1, AccountInput{Code: "1000", Name: "Petty Cash", Type: AccountTypeAsset})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateAccountRejectsUnknownType(t *testing.T) {
	service := NewService(newMemoryAccountRepo(), nil)

	_, err := service.CreateAccount(context.Background(), uuid.New(), 1, AccountInput{Code: "1", Name: "X", Type: "contra"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteAccountBlockedWhenReferenced(t *testing.T) {
	repo := newMemoryAccountRepo()
	service := NewService(repo, nil)
	companyID := uuid.New()
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, companyID, 1, AccountInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	repo.referenced[account.ID] = true

	err = service.DeleteAccount(ctx, companyID, account.ID, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteAccountBlockedForSystemAccount(t *testing.T) {
	repo := newMemoryAccountRepo()
	service := NewService(repo, nil)
	companyID := uuid.New()
	id := uuid.New()
	repo.accounts[id] = &Account{ID: id, CompanyID: companyID, Code: "2100", Name: "AP Control", Type: AccountTypeLiability, IsSystem: true}

	err := service.DeleteAccount(context.Background(), companyID, id, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}
