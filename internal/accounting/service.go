package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps chart-of-accounts rules.
type Service struct {
	repo  Repository
	audit shared.AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// AccountInput carries account fields for create and update.
type AccountInput struct {
	Code          string
	Name          string
	Type          AccountType
	NormalBalance NormalBalance
	ParentID      *uuid.UUID
	IsActive      *bool
}

func (i AccountInput) validate() error {
	if strings.TrimSpace(i.Code) == "" {
		return fmt.Errorf("%w: account code is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: account name is required", httpx.ErrValidation)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", httpx.ErrValidation, i.Type)
	}
	if i.NormalBalance != "" && i.NormalBalance != NormalBalanceDebit && i.NormalBalance != NormalBalanceCredit {
		return fmt.Errorf("%w: unknown normal balance %q", httpx.ErrValidation, i.NormalBalance)
	}
	return nil
}

// CreateAccount adds an account to the chart.
func (s *Service) CreateAccount(ctx context.Context, companyID uuid.UUID, actorID int64, input AccountInput) (*Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if _, err := s.repo.GetAccount(ctx, companyID, *input.ParentID); err != nil {
			return nil, fmt.Errorf("%w: parent account", httpx.ErrValidation)
		}
	}
	balance := input.NormalBalance
	if balance == "" {
		balance = DefaultNormalBalance(input.Type)
	}
	now := s.now()
	account := &Account{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Code:          strings.TrimSpace(input.Code),
		Name:          strings.TrimSpace(input.Name),
		Type:          input.Type,
		NormalBalance: balance,
		ParentID:      input.ParentID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "account.create", account.ID)
	return account, nil
}

// UpdateAccount replaces the mutable fields of an account.
func (s *Service) UpdateAccount(ctx context.Context, companyID, id uuid.UUID, actorID int64, input AccountInput) (*Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if account.IsSystem {
		return nil, fmt.Errorf("%w: system accounts cannot be modified", httpx.ErrValidation)
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, fmt.Errorf("%w: account cannot be its own parent", httpx.ErrValidation)
		}
		if _, err := s.repo.GetAccount(ctx, companyID, *input.ParentID); err != nil {
			return nil, fmt.Errorf("%w: parent account", httpx.ErrValidation)
		}
	}
	account.Code = strings.TrimSpace(input.Code)
	account.Name = strings.TrimSpace(input.Name)
	account.Type = input.Type
	if input.NormalBalance != "" {
		account.NormalBalance = input.NormalBalance
	}
	account.ParentID = input.ParentID
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	account.UpdatedAt = s.now()
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "account.update", account.ID)
	return account, nil
}

// DeleteAccount removes an unreferenced, non-system account.
func (s *Service) DeleteAccount(ctx context.Context, companyID, id uuid.UUID, actorID int64) error {
	account, err := s.repo.GetAccount(ctx, companyID, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: system accounts cannot be deleted", httpx.ErrValidation)
	}
	if err := s.repo.DeleteAccount(ctx, companyID, id); err != nil {
		return err
	}
	s.record(ctx, actorID, companyID, "account.delete", id)
	return nil
}

// GetAccount fetches one account.
func (s *Service) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, companyID, id)
}

// ListAccounts returns the chart ordered by code.
func (s *Service) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]Account, error) {
	return s.repo.ListAccounts(ctx, companyID)
}

func (s *Service) record(ctx context.Context, actorID int64, companyID uuid.UUID, action string, entityID uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    action,
		Entity:    "account",
		EntityID:  entityID.String(),
		At:        s.now(),
	})
}
