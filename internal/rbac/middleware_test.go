package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

type staticPermissionSource struct {
	granted []string
}

func (s staticPermissionSource) EffectivePermissions(ctx context.Context, userID int64, companyID uuid.UUID) ([]string, error) {
	return s.granted, nil
}

func requestWithSubject(userID int64, companyID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := shared.ContextWithUserID(req.Context(), userID)
	ctx = shared.ContextWithCompanyID(ctx, companyID)
	return req.WithContext(ctx)
}

func TestRequireAnyAllowsGrantedPermission(t *testing.T) {
	mw := Middleware{Source: staticPermissionSource{granted: []string{PermissionAccountingView}}}
	called := false
	handler := mw.RequireAny(PermissionAccountingView, PermissionAccountingPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSubject(1, uuid.New()))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyBlocksMissingPermission(t *testing.T) {
	mw := Middleware{Source: staticPermissionSource{granted: []string{PermissionAccountingView}}}
	handler := mw.RequireAny(PermissionRBACManage)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSubject(1, uuid.New()))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyBlocksAnonymous(t *testing.T) {
	mw := Middleware{Source: staticPermissionSource{granted: []string{PermissionAccountingView}}}
	handler := mw.RequireAny(PermissionAccountingView)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Source: staticPermissionSource{granted: []string{PermissionAccountingView}}}
	handler := mw.RequireAll(PermissionAccountingView, PermissionAccountingPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSubject(1, uuid.New()))

	require.Equal(t, http.StatusForbidden, rec.Code)
}
