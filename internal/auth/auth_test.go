package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestIssueParseRoundTrip(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("user-1", RoleClinician)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != "user-1" || claims.Role != RoleClinician {
		t.Errorf("claims: %+v", claims)
	}

	other := NewAuthService("different-secret")
	if _, err := other.Parse(tok); err == nil {
		t.Error("token signed with another secret should not parse")
	}
}

func TestLoginHandlerBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a := NewAuthService("test-secret")
	h := LoginHandler(a, "admin", string(hash))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"username":"admin","password":"s3cret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid login: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status %d, want 401", rec.Code)
	}
}

func TestJWTMiddlewareAndRequire(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, _ := a.IssueJWT("guest|x", RoleRespondent)

	var sawRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRole = RoleFromContext(r.Context())
	})
	protected := JWTMiddleware(a)(Require(RoleRespondent)(inner))

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || sawRole != RoleRespondent {
		t.Errorf("status %d, role %q", rec.Code, sawRole)
	}

	// Missing token.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	// Wrong role.
	clinicianOnly := JWTMiddleware(a)(Require(RoleClinician)(inner))
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	clinicianOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong role: status %d, want 403", rec.Code)
	}
}
