package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/auth"
)

// RequireAdmin aborts with 403 unless the authenticated principal is an
// admin. It must run after Authenticate; without a principal it answers 401.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireAdmin(PrincipalFrom(c)); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "admin privileges required"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			return next(c)
		}
	}
}
