package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func contextWithClaims(claims jwt.MapClaims) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if claims != nil {
		c.Set("user", jwt.NewWithClaims(jwt.SigningMethodHS256, claims))
	}
	return c
}

func TestTenantFromContext(t *testing.T) {
	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"login claim wins", jwt.MapClaims{"login": "alice", "email": "bob@example.com"}, "alice"},
		{"email local part fallback", jwt.MapClaims{"email": "carol@example.com"}, "carol"},
		{"sub fallback", jwt.MapClaims{"sub": "dave"}, "dave"},
		{"login whitespace trimmed", jwt.MapClaims{"login": "  erin  "}, "erin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TenantFromContext(contextWithClaims(tc.claims))
			if err != nil {
				t.Fatalf("TenantFromContext failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("tenant = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTenantFromContextMissingToken(t *testing.T) {
	if _, err := TenantFromContext(contextWithClaims(nil)); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestTenantFromContextNoIdentityClaims(t *testing.T) {
	if _, err := TenantFromContext(contextWithClaims(jwt.MapClaims{"iat": 1700000000})); err == nil {
		t.Fatal("expected error when the token carries no identity")
	}
}
