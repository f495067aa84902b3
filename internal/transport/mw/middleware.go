// Package mw holds the admin HTTP surface's middleware: a single static
// bearer-token check. There is no multi-tenant IAM concept in this
// pipeline, so there is nothing here resembling a JWKS-backed verifier.
package mw

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// BearerAuth validates an HS256 bearer token signed with secret. On
// success the token's "sub" claim (the operator identity) is stored in
// echo.Context under "subject" for handlers that want an audit trail.
func BearerAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}

			if sub, ok := claims["sub"].(string); ok {
				c.Set("subject", sub)
			}
			return next(c)
		}
	}
}
