package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Recorder is the storage surface the guard needs. *Store satisfies it.
type Recorder interface {
	Lookup(ctx context.Context, companyID uuid.UUID, scope, key string) (*Record, error)
	Complete(ctx context.Context, rec Record) error
}

// Guard wraps mutating handlers so repeated calls with the same
// Idempotency-Key replay the first response instead of mutating twice.
type Guard struct {
	store  Recorder
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewGuard constructs a Guard with the given record lifetime.
func NewGuard(store Recorder, logger *slog.Logger, ttl time.Duration) *Guard {
	return &Guard{store: store, logger: logger, ttl: ttl, now: time.Now}
}

// Execute runs fn under the idempotency protocol. The request body is read
// here and handed to fn; its sha256 is stored with the record. A completed
// record replays the stored body verbatim with HTTP 200.
func (g *Guard) Execute(w http.ResponseWriter, r *http.Request, companyID uuid.UUID, scope string, fn func(body []byte) (any, int, error)) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Idempotency-Key header required.")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unable to read request body")
		return
	}

	rec, err := g.store.Lookup(r.Context(), companyID, scope, key)
	if err != nil {
		g.logger.Error("idempotency lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rec != nil && rec.Status == StatusCompleted && len(rec.ResponseBody) > 0 {
		httpx.Raw(w, http.StatusOK, rec.ResponseBody)
		return
	}

	payload, status, err := fn(body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("idempotency encode response", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
		return
	}

	hash := sha256.Sum256(body)
	if err := g.store.Complete(r.Context(), Record{
		CompanyID:    companyID,
		Scope:        scope,
		Key:          key,
		RequestHash:  hex.EncodeToString(hash[:]),
		Status:       StatusCompleted,
		ResponseBody: encoded,
		ExpiresAt:    g.now().Add(g.ttl),
	}); err != nil {
		g.logger.Error("idempotency record response", slog.Any("error", err))
	}
	httpx.Raw(w, status, encoded)
}
