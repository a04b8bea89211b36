package journals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestServiceCreateEntryWithLines(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	svc := NewService(repo, nil)

	entry, err := svc.CreateEntry(ctx, companyID, 1, CreateEntryInput{
		Description: "Opening sale",
		Lines: []LineInput{
			{AccountID: cash, Debit: amt("250.00")},
			{AccountID: revenue, Credit: amt("250.00")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, entry.Status)
	require.Nil(t, entry.EntryNo)
	require.False(t, entry.EntryDate.IsZero())

	lines, err := svc.ListLines(ctx, companyID, entry.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestServicePostThenVoid(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	svc := NewService(repo, nil)

	entry, err := svc.CreateEntry(ctx, companyID, 5, CreateEntryInput{
		Lines: []LineInput{
			{AccountID: cash, Debit: amt("120.00")},
			{AccountID: revenue, Credit: amt("120.00")},
		},
	})
	require.NoError(t, err)

	posted, err := svc.PostEntry(ctx, companyID, entry.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.EntryNo)
	require.Equal(t, int64(1), *posted.EntryNo)

	original, reversal, err := svc.VoidEntry(ctx, companyID, entry.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, original.Status)
	require.Equal(t, StatusPosted, reversal.Status)
	require.Equal(t, int64(2), *reversal.EntryNo)

	stored, err := svc.GetEntry(ctx, companyID, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, stored.Status)
}

func TestServiceRejectsForeignCompany(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	svc := NewService(repo, nil)

	entry, err := svc.CreateEntry(ctx, companyID, 1, CreateEntryInput{
		Lines: []LineInput{
			{AccountID: cash, Debit: amt("10")},
			{AccountID: revenue, Credit: amt("10")},
		},
	})
	require.NoError(t, err)

	_, err = svc.PostEntry(ctx, uuid.New(), entry.ID, 1)
	require.ErrorContains(t, err, "journal entry")
	_, err = svc.GetEntry(ctx, uuid.New(), entry.ID)
	require.ErrorContains(t, err, "journal entry")
}

func TestServiceReplaceLinesKeepsDraftEditable(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	companyID := uuid.New()
	cash := repo.addAccount(true)
	revenue := repo.addAccount(true)
	expense := repo.addAccount(true)
	svc := NewService(repo, nil)

	entry, err := svc.CreateEntry(ctx, companyID, 1, CreateEntryInput{
		Lines: []LineInput{
			{AccountID: cash, Debit: amt("10")},
			{AccountID: revenue, Credit: amt("10")},
		},
	})
	require.NoError(t, err)

	_, lines, err := svc.ReplaceEntryLines(ctx, companyID, entry.ID, 1, []LineInput{
		{AccountID: expense, Debit: amt("75.50")},
		{AccountID: cash, Credit: amt("75.50")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, expense, lines[0].AccountID)
	require.Equal(t, "75.5", lines[0].Debit.String())
}
