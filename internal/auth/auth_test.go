package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protected(a *Auth) http.Handler {
	return a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareDisabledAllowsAll(t *testing.T) {
	a := New("")
	req := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareRejectsWithoutToken(t *testing.T) {
	a := New("hunter2")
	req := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAcceptsTokenVariants(t *testing.T) {
	a := New("hunter2")
	token, err := a.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	bearer := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)

	cookie := httptest.NewRequest(http.MethodGet, "/api/backup/list", nil)
	cookie.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	// Browser downloads cannot set headers, so the token may ride in
	// the query string.
	query := httptest.NewRequest(http.MethodGet, "/api/backup/download/x.zip?token="+token, nil)

	for name, req := range map[string]*http.Request{"bearer": bearer, "cookie": cookie, "query": query} {
		rec := httptest.NewRecorder()
		protected(a).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", name, rec.Code)
		}
	}
}

func TestInvalidateToken(t *testing.T) {
	a := New("hunter2")
	token, err := a.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}
	if !a.ValidateToken(token) {
		t.Fatal("fresh token rejected")
	}
	a.InvalidateToken(token)
	if a.ValidateToken(token) {
		t.Fatal("invalidated token still accepted")
	}
}
