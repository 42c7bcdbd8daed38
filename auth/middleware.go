package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys under which the middleware stores the caller identity.
const (
	UserIDKey = "user_id"
	RolesKey  = "roles"
)

// Middleware validates Bearer tokens on protected routes and injects the
// caller identity into the request context. A missing, malformed or
// expired token yields 401 without internal detail.
func Middleware(tokens *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization token is missing")
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == header {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authentication scheme")
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(RolesKey, claims.Roles)
			return next(c)
		}
	}
}
