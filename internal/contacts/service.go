package contacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps contact directory rules.
type Service struct {
	repo  Repository
	audit shared.AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Input carries contact fields for create and update.
type Input struct {
	Kind     Kind
	Name     string
	Email    string
	Phone    string
	Address  string
	TaxID    string
	IsActive *bool
}

func (i Input) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: contact name is required", httpx.ErrValidation)
	}
	if i.Kind != "" && !i.Kind.Valid() {
		return fmt.Errorf("%w: unknown contact kind %q", httpx.ErrValidation, i.Kind)
	}
	return nil
}

// Create adds a contact to the company directory.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, actorID int64, input Input) (*Contact, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	kind := input.Kind
	if kind == "" {
		kind = KindBoth
	}
	now := s.now()
	contact := &Contact{
		ID:        uuid.New(),
		CompanyID: companyID,
		Kind:      kind,
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		TaxID:     strings.TrimSpace(input.TaxID),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.IsActive != nil {
		contact.IsActive = *input.IsActive
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "contact.create", contact.ID)
	return contact, nil
}

// Update replaces the mutable fields of a contact.
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, actorID int64, input Input) (*Contact, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	contact, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if input.Kind != "" {
		contact.Kind = input.Kind
	}
	contact.Name = strings.TrimSpace(input.Name)
	contact.Email = strings.TrimSpace(input.Email)
	contact.Phone = strings.TrimSpace(input.Phone)
	contact.Address = strings.TrimSpace(input.Address)
	contact.TaxID = strings.TrimSpace(input.TaxID)
	if input.IsActive != nil {
		contact.IsActive = *input.IsActive
	}
	contact.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "contact.update", contact.ID)
	return contact, nil
}

// Get fetches one contact.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Contact, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns the directory, optionally narrowed to customers or vendors.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, kind Kind) ([]Contact, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown contact kind %q", httpx.ErrValidation, kind)
	}
	return s.repo.List(ctx, companyID, kind)
}

func (s *Service) record(ctx context.Context, actorID int64, companyID uuid.UUID, action string, entityID uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    action,
		Entity:    "contact",
		EntityID:  entityID.String(),
		At:        s.now(),
	})
}
