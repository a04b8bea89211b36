package trade

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/idempotency"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type allowAllPermissions struct{}

func (allowAllPermissions) EffectivePermissions(context.Context, int64, uuid.UUID) ([]string, error) {
	return rbac.AllPermissions(), nil
}

type memoryRecorder struct {
	records map[string]idempotency.Record
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{records: make(map[string]idempotency.Record)}
}

func (m *memoryRecorder) Lookup(_ context.Context, companyID uuid.UUID, scope, key string) (*idempotency.Record, error) {
	rec, ok := m.records[companyID.String()+"/"+scope+"/"+key]
	if !ok || !rec.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryRecorder) Complete(_ context.Context, rec idempotency.Record) error {
	m.records[rec.CompanyID.String()+"/"+rec.Scope+"/"+rec.Key] = rec
	return nil
}

func newTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := idempotency.NewGuard(newMemoryRecorder(), logger, 24*time.Hour)
	middleware := rbac.Middleware{Source: allowAllPermissions{}, Logger: logger}
	handler := NewHandler(logger, f.svc, guard, middleware, HandlerPaths{DocSlug: "invoices", SettlementSlug: "receipts"})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithUserID(req.Context(), 1)
			ctx = shared.ContextWithCompanyID(ctx, f.companyID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/", handler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body, idemKey string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, payload
}

func TestReceiptPostIsIdempotent(t *testing.T) {
	f := newFixture(t, receivableConfig(), contacts.KindCustomer)
	srv := newTestServer(t, f)
	doc := f.postedDoc(t, "100.00")

	createBody := `{
		"contact_id": "` + f.contactID.String() + `",
		"amount": "100.00",
		"settle_account_id": "` + f.settle.String() + `",
		"allocations": [{"doc_id": "` + doc.ID.String() + `", "amount": "100.00"}]
	}`
	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/receipts", createBody, "create-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created Settlement
	require.NoError(t, json.Unmarshal(payload, &created))
	require.Equal(t, SettlementDraft, created.Status)

	postURL := srv.URL + "/receipts/" + created.ID.String() + "/post"
	resp1, body1 := doJSON(t, http.MethodPost, postURL, "", "post-1")
	require.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, body2 := doJSON(t, http.MethodPost, postURL, "", "post-1")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.JSONEq(t, string(body1), string(body2))

	current, err := f.svc.GetDoc(context.Background(), f.companyID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, DocPaid, current.Status)
	require.Equal(t, "100", current.AmountPaid.String())
}

func TestReceiptCreateRequiresIdempotencyKey(t *testing.T) {
	f := newFixture(t, receivableConfig(), contacts.KindCustomer)
	srv := newTestServer(t, f)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/receipts", "{}", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(payload), "Idempotency-Key header required.")
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t, receivableConfig(), contacts.KindCustomer)
	srv := newTestServer(t, f)

	createBody := `{
		"contact_id": "` + f.contactID.String() + `",
		"control_account_id": "` + f.control.String() + `",
		"lines": [{"description": "Consulting", "quantity": "2", "unit_price": "60.00", "account_id": "` + f.offset.String() + `"}]
	}`
	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/invoices", createBody, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc Doc
	require.NoError(t, json.Unmarshal(payload, &doc))
	require.Equal(t, DocDraft, doc.Status)
	require.Equal(t, "120", doc.Total.String())

	resp, payload = doJSON(t, http.MethodPost, srv.URL+"/invoices/"+doc.ID.String()+"/post", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &doc))
	require.Equal(t, DocPosted, doc.Status)
	require.Equal(t, int64(1), *doc.DocNo)

	resp, payload = doJSON(t, http.MethodGet, srv.URL+"/invoices/"+doc.ID.String(), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail docResponse
	require.NoError(t, json.Unmarshal(payload, &detail))
	require.Len(t, detail.Lines, 1)
	require.Equal(t, "120", detail.Lines[0].LineTotal.String())
}
