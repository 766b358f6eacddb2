package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"epas/internal/requestctx"
)

type fakePermissionStore struct {
	grants map[string]map[string]bool
	err    error
}

func (f *fakePermissionStore) HasPermission(_ context.Context, role, permission string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.grants[role][permission], nil
}

func TestRequirePermission(t *testing.T) {
	store := &fakePermissionStore{grants: map[string]map[string]bool{
		"hr": {"forms.write": true},
	}}

	handler := RequirePermission("forms.write", store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := func(user *requestctx.User) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil)
		if user != nil {
			req = req.WithContext(requestctx.WithUser(req.Context(), *user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous request: expected 401, got %d", code)
	}
	if code := request(&requestctx.User{ID: "u1", Role: "employee"}); code != http.StatusForbidden {
		t.Fatalf("unauthorized role: expected 403, got %d", code)
	}
	if code := request(&requestctx.User{ID: "u2", Role: "hr"}); code != http.StatusNoContent {
		t.Fatalf("authorized role: expected 204, got %d", code)
	}
}

func TestRequirePermissionStoreError(t *testing.T) {
	store := &fakePermissionStore{err: errors.New("db down")}
	handler := RequirePermission("forms.write", store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil)
	req = req.WithContext(requestctx.WithUser(req.Context(), requestctx.User{ID: "u1", Role: "hr"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store error, got %d", rec.Code)
	}
}
