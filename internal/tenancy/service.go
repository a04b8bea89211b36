package tenancy

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps company and membership rules.
type Service struct {
	repo  Repository
	audit shared.AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateCompanyInput carries the fields for a new company.
type CreateCompanyInput struct {
	Name string
	Slug string
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a company name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateCompany creates the company and bootstraps roles and ownership for
// the creating user.
func (s *Service) CreateCompany(ctx context.Context, actorID int64, input CreateCompanyInput) (*Company, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", httpx.ErrValidation)
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: company slug is required", httpx.ErrValidation)
	}

	company := &Company{Name: name, Slug: slug}
	if err := s.repo.CreateCompany(ctx, company, actorID); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   actorID,
			CompanyID: company.ID,
			Action:    "company.create",
			Entity:    "company",
			EntityID:  company.ID.String(),
			Meta:      map[string]any{"name": company.Name, "slug": company.Slug},
			At:        s.now(),
		})
	}
	return company, nil
}

// ListMine returns the companies the user actively belongs to.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Company, error) {
	return s.repo.ListCompaniesForUser(ctx, userID)
}

// ResolveMember returns the company when the user has an active membership.
// Foreign or unknown companies come back as not-found so tenants cannot be
// probed.
func (s *Service) ResolveMember(ctx context.Context, userID int64, companyID uuid.UUID) (*Company, error) {
	member, company, err := s.repo.GetMembership(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if member.Status != MemberStatusActive {
		return nil, httpx.ErrNotFound
	}
	return company, nil
}

// ListMembers returns all memberships of a company.
func (s *Service) ListMembers(ctx context.Context, companyID uuid.UUID) ([]Member, error) {
	return s.repo.ListMembers(ctx, companyID)
}
