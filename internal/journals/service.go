package journals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service exposes journal operations to the HTTP layer. Every mutation runs
// in a single transaction through the repository.
type Service struct {
	repo  Repository
	audit shared.AuditPort
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateEntryInput carries the fields for a new draft entry.
type CreateEntryInput struct {
	EntryDate   time.Time
	Description string
	Lines       []LineInput
}

// CreateEntry inserts a draft entry, optionally with initial lines.
func (s *Service) CreateEntry(ctx context.Context, companyID uuid.UUID, actorID int64, input CreateEntryInput) (*Entry, error) {
	now := s.now()
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}
	entry := &Entry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Status:      StatusDraft,
		EntryDate:   entryDate,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if len(input.Lines) > 0 {
			if _, err := ReplaceLines(ctx, tx, entry, input.Lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "journal.create", entry.ID, nil)
	return entry, nil
}

// ReplaceEntryLines wholesale-replaces the lines of a draft entry.
func (s *Service) ReplaceEntryLines(ctx context.Context, companyID, entryID uuid.UUID, actorID int64, inputs []LineInput) (*Entry, []Line, error) {
	var entry *Entry
	var lines []Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		replaced, err := ReplaceLines(ctx, tx, current, inputs)
		if err != nil {
			return err
		}
		current.UpdatedAt = s.now()
		if err := tx.UpdateEntry(ctx, current); err != nil {
			return err
		}
		entry = current
		lines = replaced
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, actorID, companyID, "journal.replace_lines", entryID, map[string]any{"lines": len(lines)})
	return entry, lines, nil
}

// PostEntry posts a balanced draft entry.
func (s *Service) PostEntry(ctx context.Context, companyID, entryID uuid.UUID, actorID int64) (*Entry, error) {
	var entry *Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if err := Post(ctx, tx, current, actorID); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, companyID, "journal.post", entryID, map[string]any{"entry_no": entry.EntryNo})
	return entry, nil
}

// VoidEntry voids a posted entry and returns it with its reversal.
func (s *Service) VoidEntry(ctx context.Context, companyID, entryID uuid.UUID, actorID int64) (*Entry, *Entry, error) {
	var entry, reversal *Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		rev, err := Void(ctx, tx, current, actorID)
		if err != nil {
			return err
		}
		entry = current
		reversal = rev
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.record(ctx, actorID, companyID, "journal.void", entryID, map[string]any{"reversal_id": reversal.ID.String()})
	return entry, reversal, nil
}

// GetEntry fetches one entry.
func (s *Service) GetEntry(ctx context.Context, companyID, id uuid.UUID) (*Entry, error) {
	return s.repo.GetEntry(ctx, companyID, id)
}

// ListEntries returns entries matching the filter, newest first.
func (s *Service) ListEntries(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, companyID, filter)
}

// ListLines returns the lines of one entry.
func (s *Service) ListLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error) {
	if _, err := s.repo.GetEntry(ctx, companyID, entryID); err != nil {
		return nil, err
	}
	return s.repo.ListLines(ctx, companyID, entryID)
}

func (s *Service) record(ctx context.Context, actorID int64, companyID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    action,
		Entity:    "journal_entry",
		EntityID:  entityID.String(),
		Meta:      meta,
		At:        s.now(),
	})
}
