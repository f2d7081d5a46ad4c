package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protected(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var gotSubject, gotRole string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
		gotRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &gotSubject, &gotRole
}

func TestAuthAcceptsValidToken(t *testing.T) {
	handler, subject, role := protected(t)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "visitor-7",
		"role": "operator",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/parking-sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *subject != "visitor-7" || *role != "operator" {
		t.Fatalf("claims = %q/%q", *subject, *role)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler, _, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/parking-sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	handler, _, _ := protected(t)
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "visitor-7"})

	req := httptest.NewRequest(http.MethodGet, "/parking-sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	handler, _, _ := protected(t)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "visitor-7",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/parking-sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsTokenWithoutSubject(t *testing.T) {
	handler, _, _ := protected(t)
	token := signToken(t, testSecret, jwt.MapClaims{"role": "operator"})

	req := httptest.NewRequest(http.MethodGet, "/parking-sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
