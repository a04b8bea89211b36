package idempotency

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	records map[string]Record
	now     func() time.Time
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{records: make(map[string]Record), now: time.Now}
}

func (m *memoryRecorder) key(companyID uuid.UUID, scope, key string) string {
	return companyID.String() + "/" + scope + "/" + key
}

func (m *memoryRecorder) Lookup(_ context.Context, companyID uuid.UUID, scope, key string) (*Record, error) {
	rec, ok := m.records[m.key(companyID, scope, key)]
	if !ok || !rec.ExpiresAt.After(m.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryRecorder) Complete(_ context.Context, rec Record) error {
	m.records[m.key(rec.CompanyID, rec.Scope, rec.Key)] = rec
	return nil
}

func testGuard(store Recorder) *Guard {
	return NewGuard(store, slog.New(slog.NewTextHandler(io.Discard, nil)), 24*time.Hour)
}

func TestGuardRequiresHeader(t *testing.T) {
	guard := testGuard(newMemoryRecorder())
	req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	guard.Execute(w, req, uuid.New(), "receipts.create", func([]byte) (any, int, error) {
		t.Fatal("handler should not run")
		return nil, 0, nil
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Idempotency-Key header required.")
}

func TestGuardReplaysCompletedResponse(t *testing.T) {
	store := newMemoryRecorder()
	guard := testGuard(store)
	companyID := uuid.New()
	calls := 0
	handler := func(body []byte) (any, int, error) {
		calls++
		return map[string]any{"id": "r-1", "body": string(body)}, http.StatusCreated, nil
	}

	first := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader(`{"amount":"40"}`))
	first.Header.Set("Idempotency-Key", "abc")
	w1 := httptest.NewRecorder()
	guard.Execute(w1, first, companyID, "receipts.create", handler)
	require.Equal(t, http.StatusCreated, w1.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader(`{"amount":"40"}`))
	second.Header.Set("Idempotency-Key", "abc")
	w2 := httptest.NewRecorder()
	guard.Execute(w2, second, companyID, "receipts.create", handler)

	require.Equal(t, http.StatusOK, w2.Code)
	require.Equal(t, 1, calls)
	require.JSONEq(t, w1.Body.String(), w2.Body.String())
}

func TestGuardScopesAreIndependent(t *testing.T) {
	store := newMemoryRecorder()
	guard := testGuard(store)
	companyID := uuid.New()
	calls := 0
	handler := func([]byte) (any, int, error) {
		calls++
		return map[string]int{"n": calls}, http.StatusOK, nil
	}

	for _, scope := range []string{"receipts.create", "receipts.post:r-1"} {
		req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader("{}"))
		req.Header.Set("Idempotency-Key", "same-key")
		guard.Execute(httptest.NewRecorder(), req, companyID, scope, handler)
	}
	require.Equal(t, 2, calls)
}

func TestGuardExpiredRecordRunsAgain(t *testing.T) {
	store := newMemoryRecorder()
	guard := testGuard(store)
	guard.ttl = -time.Hour
	companyID := uuid.New()
	calls := 0
	handler := func([]byte) (any, int, error) {
		calls++
		return map[string]int{"n": calls}, http.StatusOK, nil
	}

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader("{}"))
		req.Header.Set("Idempotency-Key", "k")
		guard.Execute(httptest.NewRecorder(), req, companyID, "receipts.create", handler)
	}
	require.Equal(t, 2, calls)
}
