package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// ContactSource resolves contacts for document validation. The contacts
// repository satisfies it.
type ContactSource interface {
	Get(ctx context.Context, companyID, id uuid.UUID) (*contacts.Contact, error)
}

// Service drives one side of the document engine.
type Service struct {
	config   Config
	repo     Repository
	contacts ContactSource
	audit    shared.AuditPort
	now      func() time.Time
}

// NewService constructs a Service for one side.
func NewService(config Config, repo Repository, contactSource ContactSource, audit shared.AuditPort) *Service {
	return &Service{config: config, repo: repo, contacts: contactSource, audit: audit, now: time.Now}
}

// Config returns the side configuration.
func (s *Service) Config() Config { return s.config }

// CreateDocInput carries the fields for a new draft document.
type CreateDocInput struct {
	ContactID        uuid.UUID
	DocDate          time.Time
	DueDate          *time.Time
	Currency         string
	ControlAccountID uuid.UUID
	Memo             string
	Lines            []DocLineInput
}

// CreateDoc inserts a draft document, optionally with initial lines.
func (s *Service) CreateDoc(ctx context.Context, companyID uuid.UUID, actorID int64, input CreateDocInput) (*Doc, error) {
	if err := s.checkContact(ctx, companyID, input.ContactID); err != nil {
		return nil, err
	}
	now := s.now()
	docDate := input.DocDate
	if docDate.IsZero() {
		docDate = now
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	doc := &Doc{
		ID:               uuid.New(),
		CompanyID:        companyID,
		Status:           DocDraft,
		ContactID:        input.ContactID,
		DocDate:          docDate,
		DueDate:          input.DueDate,
		Currency:         currency,
		Subtotal:         decimal.Zero,
		TaxTotal:         decimal.Zero,
		Total:            decimal.Zero,
		AmountPaid:       decimal.Zero,
		ControlAccountID: input.ControlAccountID,
		Memo:             input.Memo,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkAccount(ctx, tx, companyID, input.ControlAccountID, "control account"); err != nil {
			return err
		}
		if err := tx.InsertDoc(ctx, doc); err != nil {
			return err
		}
		if len(input.Lines) > 0 {
			if _, err := s.config.ReplaceDocLines(ctx, tx, doc, input.Lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.DocNoun+".create", s.config.DocNoun, doc.ID, nil)
	return doc, nil
}

// ReplaceDocLines wholesale-replaces the lines of a draft document.
func (s *Service) ReplaceDocLines(ctx context.Context, companyID, docID uuid.UUID, actorID int64, inputs []DocLineInput) (*Doc, []DocLine, error) {
	var doc *Doc
	var lines []DocLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocForUpdate(ctx, companyID, docID)
		if err != nil {
			return err
		}
		replaced, err := s.config.ReplaceDocLines(ctx, tx, current, inputs)
		if err != nil {
			return err
		}
		doc = current
		lines = replaced
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, actorID, companyID, s.config.DocNoun+".replace_lines", s.config.DocNoun, docID, map[string]any{"lines": len(lines)})
	return doc, lines, nil
}

// PostDoc posts a draft document.
func (s *Service) PostDoc(ctx context.Context, companyID, docID uuid.UUID, actorID int64) (*Doc, error) {
	var doc *Doc
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocForUpdate(ctx, companyID, docID)
		if err != nil {
			return err
		}
		if err := s.config.PostDoc(ctx, tx, current, actorID); err != nil {
			return err
		}
		doc = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.DocNoun+".post", s.config.DocNoun, docID, map[string]any{"doc_no": doc.DocNo})
	return doc, nil
}

// VoidDoc voids an unsettled posted document.
func (s *Service) VoidDoc(ctx context.Context, companyID, docID uuid.UUID, actorID int64) (*Doc, error) {
	var doc *Doc
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocForUpdate(ctx, companyID, docID)
		if err != nil {
			return err
		}
		if err := s.config.VoidDoc(ctx, tx, current, actorID); err != nil {
			return err
		}
		doc = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.DocNoun+".void", s.config.DocNoun, docID, nil)
	return doc, nil
}

// GetDoc fetches one document.
func (s *Service) GetDoc(ctx context.Context, companyID, id uuid.UUID) (*Doc, error) {
	return s.repo.GetDoc(ctx, companyID, id)
}

// ListDocs returns documents matching the filter, newest first.
func (s *Service) ListDocs(ctx context.Context, companyID uuid.UUID, filter DocFilter) ([]Doc, error) {
	return s.repo.ListDocs(ctx, companyID, filter)
}

// ListDocLines returns the lines of one document.
func (s *Service) ListDocLines(ctx context.Context, companyID, docID uuid.UUID) ([]DocLine, error) {
	if _, err := s.repo.GetDoc(ctx, companyID, docID); err != nil {
		return nil, err
	}
	return s.repo.ListDocLines(ctx, companyID, docID)
}

// CreateSettlementInput carries the fields for a new draft settlement.
type CreateSettlementInput struct {
	ContactID       uuid.UUID
	SettleDate      time.Time
	Amount          decimal.Decimal
	SettleAccountID uuid.UUID
	Memo            string
	Allocations     []AllocationInput
}

// CreateSettlement inserts a draft settlement, optionally with allocations.
func (s *Service) CreateSettlement(ctx context.Context, companyID uuid.UUID, actorID int64, input CreateSettlementInput) (*Settlement, error) {
	if err := s.checkContact(ctx, companyID, input.ContactID); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s amount must be positive", httpx.ErrValidation, s.config.SettlementNoun)
	}
	now := s.now()
	settleDate := input.SettleDate
	if settleDate.IsZero() {
		settleDate = now
	}
	settlement := &Settlement{
		ID:              uuid.New(),
		CompanyID:       companyID,
		Status:          SettlementDraft,
		ContactID:       input.ContactID,
		SettleDate:      settleDate,
		Amount:          shared.Quantize(input.Amount),
		SettleAccountID: input.SettleAccountID,
		Memo:            input.Memo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkAccount(ctx, tx, companyID, input.SettleAccountID, "settle account"); err != nil {
			return err
		}
		if err := tx.InsertSettlement(ctx, settlement); err != nil {
			return err
		}
		if len(input.Allocations) > 0 {
			if _, err := s.config.ReplaceAllocations(ctx, tx, settlement, input.Allocations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.SettlementNoun+".create", s.config.SettlementNoun, settlement.ID, nil)
	return settlement, nil
}

// ReplaceAllocations wholesale-replaces the allocations of a draft settlement.
func (s *Service) ReplaceAllocations(ctx context.Context, companyID, settlementID uuid.UUID, actorID int64, inputs []AllocationInput) (*Settlement, []Allocation, error) {
	var settlement *Settlement
	var allocs []Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSettlementForUpdate(ctx, companyID, settlementID)
		if err != nil {
			return err
		}
		replaced, err := s.config.ReplaceAllocations(ctx, tx, current, inputs)
		if err != nil {
			return err
		}
		settlement = current
		allocs = replaced
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, actorID, companyID, s.config.SettlementNoun+".replace_allocations", s.config.SettlementNoun, settlementID, map[string]any{"allocations": len(allocs)})
	return settlement, allocs, nil
}

// PostSettlement posts a draft settlement and applies it to its documents.
func (s *Service) PostSettlement(ctx context.Context, companyID, settlementID uuid.UUID, actorID int64) (*Settlement, error) {
	var settlement *Settlement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSettlementForUpdate(ctx, companyID, settlementID)
		if err != nil {
			return err
		}
		if err := s.config.PostSettlement(ctx, tx, current, actorID); err != nil {
			return err
		}
		settlement = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.SettlementNoun+".post", s.config.SettlementNoun, settlementID, map[string]any{"doc_no": settlement.DocNo})
	return settlement, nil
}

// VoidSettlement voids a posted settlement and rolls its amounts back.
func (s *Service) VoidSettlement(ctx context.Context, companyID, settlementID uuid.UUID, actorID int64) (*Settlement, error) {
	var settlement *Settlement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSettlementForUpdate(ctx, companyID, settlementID)
		if err != nil {
			return err
		}
		if err := s.config.VoidSettlement(ctx, tx, current, actorID); err != nil {
			return err
		}
		settlement = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, s.config.SettlementNoun+".void", s.config.SettlementNoun, settlementID, nil)
	return settlement, nil
}

// GetSettlement fetches one settlement.
func (s *Service) GetSettlement(ctx context.Context, companyID, id uuid.UUID) (*Settlement, error) {
	return s.repo.GetSettlement(ctx, companyID, id)
}

// ListSettlements returns settlements, newest first.
func (s *Service) ListSettlements(ctx context.Context, companyID uuid.UUID, limit int) ([]Settlement, error) {
	return s.repo.ListSettlements(ctx, companyID, limit)
}

// ListAllocations returns the allocations of one settlement.
func (s *Service) ListAllocations(ctx context.Context, companyID, settlementID uuid.UUID) ([]Allocation, error) {
	if _, err := s.repo.GetSettlement(ctx, companyID, settlementID); err != nil {
		return nil, err
	}
	return s.repo.ListAllocations(ctx, companyID, settlementID)
}

// Aging buckets the open documents by days overdue at the given time.
func (s *Service) Aging(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*AgingReport, error) {
	docs, err := s.repo.OpenDocs(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return BuildAging(docs, asOf), nil
}

func (s *Service) checkContact(ctx context.Context, companyID, contactID uuid.UUID) error {
	if contactID == uuid.Nil {
		return fmt.Errorf("%w: contact is required", httpx.ErrValidation)
	}
	contact, err := s.contacts.Get(ctx, companyID, contactID)
	if err != nil {
		return err
	}
	if !contact.IsActive {
		return fmt.Errorf("%w: contact %s is inactive", httpx.ErrValidation, contactID)
	}
	if s.config.ContactKind != "" && contact.Kind != s.config.ContactKind && contact.Kind != contacts.KindBoth {
		return fmt.Errorf("%w: contact %s is not a %s", httpx.ErrValidation, contactID, s.config.ContactKind)
	}
	return nil
}

func (s *Service) checkAccount(ctx context.Context, tx TxRepository, companyID, accountID uuid.UUID, role string) error {
	if accountID == uuid.Nil {
		return fmt.Errorf("%w: %s is required", httpx.ErrValidation, role)
	}
	active, err := tx.ActiveAccounts(ctx, companyID, []uuid.UUID{accountID})
	if err != nil {
		return err
	}
	if !active[accountID] {
		return fmt.Errorf("%w: %s %s not available in this company", httpx.ErrValidation, role, accountID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, companyID uuid.UUID, action, entity string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID.String(),
		Meta:      meta,
		At:        s.now(),
	})
}
