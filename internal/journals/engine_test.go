package journals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// memoryRepo implements both Repository and TxRepository over maps so the
// engine and service can be exercised without postgres.
type memoryRepo struct {
	entries   map[uuid.UUID]*Entry
	lines     map[uuid.UUID][]Line
	accounts  map[uuid.UUID]bool
	sequences map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries:   make(map[uuid.UUID]*Entry),
		lines:     make(map[uuid.UUID][]Line),
		accounts:  make(map[uuid.UUID]bool),
		sequences: make(map[string]int64),
	}
}

func (m *memoryRepo) addAccount(active bool) uuid.UUID {
	id := uuid.New()
	m.accounts[id] = active
	return id
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) GetEntry(_ context.Context, companyID, id uuid.UUID) (*Entry, error) {
	return m.GetEntryForUpdate(context.Background(), companyID, id)
}

func (m *memoryRepo) GetEntryForUpdate(_ context.Context, companyID, id uuid.UUID) (*Entry, error) {
	entry, ok := m.entries[id]
	if !ok || entry.CompanyID != companyID {
		return nil, errNotFoundEntry()
	}
	cp := *entry
	return &cp, nil
}

func (m *memoryRepo) InsertEntry(_ context.Context, entry *Entry) error {
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateEntry(_ context.Context, entry *Entry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return errNotFoundEntry()
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memoryRepo) ReplaceEntryLines(_ context.Context, entryID uuid.UUID, lines []Line) error {
	m.lines[entryID] = append([]Line(nil), lines...)
	return nil
}

func (m *memoryRepo) ListEntryLines(_ context.Context, _, entryID uuid.UUID) ([]Line, error) {
	return append([]Line(nil), m.lines[entryID]...), nil
}

func (m *memoryRepo) ListLines(ctx context.Context, companyID, entryID uuid.UUID) ([]Line, error) {
	return m.ListEntryLines(ctx, companyID, entryID)
}

func (m *memoryRepo) ListEntries(_ context.Context, companyID uuid.UUID, filter ListFilter) ([]Entry, error) {
	var out []Entry
	for _, entry := range m.entries {
		if entry.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (m *memoryRepo) ActiveAccounts(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	active := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if m.accounts[id] {
			active[id] = true
		}
	}
	return active, nil
}

func (m *memoryRepo) NextSequenceValue(_ context.Context, companyID uuid.UUID, key string) (int64, error) {
	k := companyID.String() + "/" + key
	if _, ok := m.sequences[k]; !ok {
		m.sequences[k] = 1
	}
	n := m.sequences[k]
	m.sequences[k]++
	return n, nil
}

func errNotFoundEntry() error {
	return fmt.Errorf("%w: journal entry", httpx.ErrNotFound)
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func draftEntry(repo *memoryRepo, companyID uuid.UUID) *Entry {
	entry := &Entry{
		ID:        uuid.New(),
		CompanyID: companyID,
		Status:    StatusDraft,
		EntryDate: time.Now(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = repo.InsertEntry(context.Background(), entry)
	return entry
}

func TestValidateLineInput(t *testing.T) {
	account := uuid.New()

	require.NoError(t, ValidateLineInput(LineInput{AccountID: account, Debit: amt("10")}))
	require.NoError(t, ValidateLineInput(LineInput{AccountID: account, Credit: amt("10")}))

	err := ValidateLineInput(LineInput{Debit: amt("10")})
	require.ErrorContains(t, err, "requires an account")

	err = ValidateLineInput(LineInput{AccountID: account, Debit: amt("-1")})
	require.ErrorContains(t, err, "cannot be negative")

	err = ValidateLineInput(LineInput{AccountID: account, Debit: amt("5"), Credit: amt("5")})
	require.ErrorContains(t, err, "exactly one of debit or credit")

	err = ValidateLineInput(LineInput{AccountID: account})
	require.ErrorContains(t, err, "exactly one of debit or credit")
}

func TestAssertBalanced(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	require.NoError(t, AssertBalanced([]Line{
		{AccountID: a, Debit: amt("120.00")},
		{AccountID: b, Credit: amt("120.00")},
	}))

	err := AssertBalanced([]Line{
		{AccountID: a, Debit: amt("120.00")},
		{AccountID: b, Credit: amt("119.99")},
	})
	require.ErrorContains(t, err, "not balanced")

	err = AssertBalanced(nil)
	require.ErrorContains(t, err, "must be positive")
}

func TestReplaceLinesQuantizesAndNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	entry := draftEntry(repo, companyID)

	lines, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: cash, Debit: amt("99.12345")},
		{AccountID: revenue, Credit: amt("99.12345")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, 1, lines[0].LineNo)
	require.Equal(t, 2, lines[1].LineNo)
	require.Equal(t, "99.1234", lines[0].Debit.String())
	require.True(t, lines[0].Credit.IsZero())
}

func TestReplaceLinesRejectsUnbalancedSet(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	entry := draftEntry(repo, companyID)

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: cash, Debit: amt("100.00")},
		{AccountID: revenue, Credit: amt("40.00")},
	})
	require.ErrorContains(t, err, "not balanced")
}

func TestReplaceLinesRejectsAmountRoundingToZero(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	rounding := repo.addAccount(true)
	entry := draftEntry(repo, companyID)

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: cash, Debit: amt("100.00")},
		{AccountID: revenue, Credit: amt("100.00")},
		{AccountID: rounding, Debit: amt("0.00004")},
	})
	require.ErrorContains(t, err, "exactly one of debit or credit")
}

func TestReplaceLinesRejectsInactiveAccount(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	dormant := repo.addAccount(false)
	entry := draftEntry(repo, companyID)

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: cash, Debit: amt("50")},
		{AccountID: dormant, Credit: amt("50")},
	})
	require.ErrorContains(t, err, "not available in this company")
}

func TestReplaceLinesDraftOnly(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	entry := draftEntry(repo, uuid.New())
	entry.Status = StatusPosted

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{{AccountID: repo.addAccount(true), Debit: amt("1")}})
	require.ErrorContains(t, err, "only draft journal entries can be edited")
}

func TestPostAssignsSequentialEntryNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)

	var numbers []int64
	for range 3 {
		entry := draftEntry(repo, companyID)
		_, err := ReplaceLines(ctx, repo, entry, []LineInput{
			{AccountID: cash, Debit: amt("120.00")},
			{AccountID: revenue, Credit: amt("120.00")},
		})
		require.NoError(t, err)
		require.NoError(t, Post(ctx, repo, entry, 7))
		require.NotNil(t, entry.EntryNo)
		numbers = append(numbers, *entry.EntryNo)
	}
	require.Equal(t, []int64{1, 2, 3}, numbers)
}

func TestPostRejectsUnbalancedAndEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	entry := draftEntry(repo, companyID)

	err := Post(ctx, repo, entry, 1)
	require.ErrorContains(t, err, "has no lines")

	repo.lines[entry.ID] = []Line{
		{EntryID: entry.ID, Debit: amt("10")},
		{EntryID: entry.ID, Credit: amt("9")},
	}
	err = Post(ctx, repo, entry, 1)
	require.ErrorContains(t, err, "not balanced")
}

func TestPostedEntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	entry := draftEntry(repo, companyID)

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: cash, Debit: amt("10")},
		{AccountID: revenue, Credit: amt("10")},
	})
	require.NoError(t, err)
	require.NoError(t, Post(ctx, repo, entry, 1))

	err = Post(ctx, repo, entry, 1)
	require.ErrorContains(t, err, "only draft journal entries can be posted")

	_, err = ReplaceLines(ctx, repo, entry, []LineInput{{AccountID: cash, Debit: amt("1")}})
	require.ErrorContains(t, err, "only draft journal entries can be edited")
}

func TestVoidCreatesMirroredReversal(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	receivable := repo.addAccount(true)
	revenue := repo.addAccount(true)
	entry := draftEntry(repo, companyID)

	_, err := ReplaceLines(ctx, repo, entry, []LineInput{
		{AccountID: receivable, Debit: amt("120.00"), Description: "AR"},
		{AccountID: revenue, Credit: amt("120.00"), Description: "Revenue"},
	})
	require.NoError(t, err)
	require.NoError(t, Post(ctx, repo, entry, 3))

	reversal, err := Void(ctx, repo, entry, 3)
	require.NoError(t, err)

	require.Equal(t, StatusVoid, entry.Status)
	require.NotNil(t, entry.VoidedAt)
	require.Equal(t, int64(3), *entry.VoidedBy)

	require.Equal(t, StatusPosted, reversal.Status)
	require.NotNil(t, reversal.EntryNo)
	require.NotEqual(t, *entry.EntryNo, *reversal.EntryNo)
	require.Equal(t, "Reversal of JE #1", reversal.Description)
	require.NotNil(t, reversal.Reference)
	require.Equal(t, ReferenceJournalReversal, reversal.Reference.Type)
	require.Equal(t, entry.ID, reversal.Reference.ID)

	mirrored, err := repo.ListEntryLines(ctx, companyID, reversal.ID)
	require.NoError(t, err)
	require.Len(t, mirrored, 2)
	require.Equal(t, 1, mirrored[0].LineNo)
	require.Equal(t, receivable, mirrored[0].AccountID)
	require.True(t, mirrored[0].Debit.IsZero())
	require.Equal(t, "120", mirrored[0].Credit.String())
	require.Equal(t, "120", mirrored[1].Debit.String())
}

func TestVoidPostedOnly(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	entry := draftEntry(repo, uuid.New())

	_, err := Void(ctx, repo, entry, 1)
	require.ErrorContains(t, err, "only posted journal entries can be voided")
}
