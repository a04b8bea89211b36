package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePurgeStore struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakePurgeStore) Purge(context.Context) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func TestIdempotencyPurgeJobHandle(t *testing.T) {
	store := &fakePurgeStore{deleted: 3}
	job := NewIdempotencyPurgeJob(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	err := job.Handle(context.Background(), NewIdempotencyPurgeTask())
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)
}

func TestIdempotencyPurgeJobPropagatesError(t *testing.T) {
	store := &fakePurgeStore{err: errors.New("boom")}
	job := NewIdempotencyPurgeJob(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	err := job.Handle(context.Background(), NewIdempotencyPurgeTask())
	require.ErrorContains(t, err, "boom")
}

func TestIdempotencyPurgeJobRequiresStore(t *testing.T) {
	job := &IdempotencyPurgeJob{}
	err := job.Handle(context.Background(), NewIdempotencyPurgeTask())
	require.ErrorContains(t, err, "store not configured")
}
