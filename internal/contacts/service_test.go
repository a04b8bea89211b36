package contacts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryContactRepo struct {
	contacts map[uuid.UUID]*Contact
}

func newMemoryContactRepo() *memoryContactRepo {
	return &memoryContactRepo{contacts: make(map[uuid.UUID]*Contact)}
}

func (r *memoryContactRepo) Create(ctx context.Context, c *Contact) error {
	clone := *c
	r.contacts[c.ID] = &clone
	return nil
}

func (r *memoryContactRepo) Update(ctx context.Context, c *Contact) error {
	if _, ok := r.contacts[c.ID]; !ok {
		return httpx.ErrNotFound
	}
	clone := *c
	r.contacts[c.ID] = &clone
	return nil
}

func (r *memoryContactRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*Contact, error) {
	c, ok := r.contacts[id]
	if !ok || c.CompanyID != companyID {
		return nil, httpx.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memoryContactRepo) List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Contact, error) {
	var out []Contact
	for _, c := range r.contacts {
		if c.CompanyID != companyID {
			continue
		}
		if kind != "" && c.Kind != kind && c.Kind != KindBoth {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func TestCreateContactDefaultsKind(t *testing.T) {
	service := NewService(newMemoryContactRepo(), nil)

	contact, err := service.Create(context.Background(), uuid.New(), 1, Input{Name: "Acme Supplies"})
	require.NoError(t, err)
	require.Equal(t, KindBoth, contact.Kind)
	require.True(t, contact.IsActive)
}

func TestCreateContactRequiresName(t *testing.T) {
	service := NewService(newMemoryContactRepo(), nil)

	_, err := service.Create(context.Background(), uuid.New(), 1, Input{Name: " "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGetContactHidesForeignCompany(t *testing.T) {
	repo := newMemoryContactRepo()
	service := NewService(repo, nil)
	ctx := context.Background()
	companyID := uuid.New()

	contact, err := service.Create(ctx, companyID, 1, Input{Name: "Acme", Kind: KindCustomer})
	require.NoError(t, err)

	_, err = service.Get(ctx, uuid.New(), contact.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListContactsFiltersKind(t *testing.T) {
	repo := newMemoryContactRepo()
	service := NewService(repo, nil)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := service.Create(ctx, companyID, 1, Input{Name: "Customer Co", Kind: KindCustomer})
	require.NoError(t, err)
	_, err = service.Create(ctx, companyID, 1, Input{Name: "Vendor Co", Kind: KindVendor})
	require.NoError(t, err)
	_, err = service.Create(ctx, companyID, 1, Input{Name: "Dual Co", Kind: KindBoth})
	require.NoError(t, err)

	customers, err := service.List(ctx, companyID, KindCustomer)
	require.NoError(t, err)
	require.Len(t, customers, 2)
}
