package tenancy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryTenancyRepo struct {
	companies map[uuid.UUID]*Company
	members   map[uuid.UUID]map[int64]*Member
}

func newMemoryTenancyRepo() *memoryTenancyRepo {
	return &memoryTenancyRepo{
		companies: make(map[uuid.UUID]*Company),
		members:   make(map[uuid.UUID]map[int64]*Member),
	}
}

func (r *memoryTenancyRepo) CreateCompany(ctx context.Context, company *Company, ownerID int64) error {
	company.ID = uuid.New()
	r.companies[company.ID] = company
	r.members[company.ID] = map[int64]*Member{
		ownerID: {CompanyID: company.ID, UserID: ownerID, Status: MemberStatusActive},
	}
	return nil
}

func (r *memoryTenancyRepo) ListCompaniesForUser(ctx context.Context, userID int64) ([]Company, error) {
	var out []Company
	for id, members := range r.members {
		if m, ok := members[userID]; ok && m.Status == MemberStatusActive {
			out = append(out, *r.companies[id])
		}
	}
	return out, nil
}

func (r *memoryTenancyRepo) GetMembership(ctx context.Context, companyID uuid.UUID, userID int64) (*Member, *Company, error) {
	members, ok := r.members[companyID]
	if !ok {
		return nil, nil, httpx.ErrNotFound
	}
	m, ok := members[userID]
	if !ok {
		return nil, nil, httpx.ErrNotFound
	}
	return m, r.companies[companyID], nil
}

func (r *memoryTenancyRepo) ListMembers(ctx context.Context, companyID uuid.UUID) ([]Member, error) {
	var out []Member
	for _, m := range r.members[companyID] {
		out = append(out, *m)
	}
	return out, nil
}

func TestCreateCompanyGeneratesSlug(t *testing.T) {
	service := NewService(newMemoryTenancyRepo(), nil)

	company, err := service.CreateCompany(context.Background(), 1, CreateCompanyInput{Name: "Acme Trading Ltd."})
	require.NoError(t, err)
	require.Equal(t, "acme-trading-ltd", company.Slug)
}

func TestCreateCompanyRequiresName(t *testing.T) {
	service := NewService(newMemoryTenancyRepo(), nil)

	_, err := service.CreateCompany(context.Background(), 1, CreateCompanyInput{Name: "   "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestResolveMemberHidesForeignCompany(t *testing.T) {
	repo := newMemoryTenancyRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	company, err := service.CreateCompany(ctx, 1, CreateCompanyInput{Name: "Acme"})
	require.NoError(t, err)

	// Owner resolves fine.
	got, err := service.ResolveMember(ctx, 1, company.ID)
	require.NoError(t, err)
	require.Equal(t, company.ID, got.ID)

	// A stranger sees not-found, not forbidden.
	_, err = service.ResolveMember(ctx, 2, company.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestResolveMemberRejectsInactiveMembership(t *testing.T) {
	repo := newMemoryTenancyRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	company, err := service.CreateCompany(ctx, 1, CreateCompanyInput{Name: "Acme"})
	require.NoError(t, err)
	repo.members[company.ID][2] = &Member{CompanyID: company.ID, UserID: 2, Status: MemberStatusInvited}

	_, err = service.ResolveMember(ctx, 2, company.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
