// Package auth verifies bearer tokens and extracts the tenant identity.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware returns the echo middleware validating bearer tokens with the
// given secret. Requests matched by skipper pass through unauthenticated.
func JWTMiddleware(secret string, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		Skipper:    skipper,
	})
}

// TenantFromContext derives the tenant login from the request's JWT claims.
// The login is the local part of the account email when no explicit login
// claim is present.
func TenantFromContext(c echo.Context) (string, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
	}

	if login, ok := claims["login"].(string); ok && strings.TrimSpace(login) != "" {
		return strings.TrimSpace(login), nil
	}
	if email, ok := claims["email"].(string); ok && strings.Contains(email, "@") {
		return strings.SplitN(email, "@", 2)[0], nil
	}
	if sub, ok := claims["sub"].(string); ok && strings.TrimSpace(sub) != "" {
		return strings.TrimSpace(sub), nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "token carries no tenant identity")
}
