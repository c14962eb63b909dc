// Package middleware carries HTTP middleware for the control surface. The
// agent has no user accounts; access is gated by a single shared token so a
// co-located process cannot drive someone else's capture session.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// EchoAgentToken returns an Echo middleware that checks the request's bearer
// token against the configured agent token. An empty configured token
// disables the check (development mode). The health endpoint is always open.
func EchoAgentToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" || c.Path() == "/health" {
				return next(c)
			}

			presented := extractToken(c.Request())
			if presented == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			return next(c)
		}
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Websocket clients cannot set headers from browsers; allow the token
	// as a query parameter for the caption feed.
	return r.URL.Query().Get("token")
}
