package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/auth"
)

const principalKey = "principal"

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p auth.Principal) {
	c.Set(principalKey, &p)
}

// PrincipalFrom returns the principal resolved by Authenticate, or nil when
// the route is not behind it.
func PrincipalFrom(c echo.Context) *auth.Principal {
	p, _ := c.Get(principalKey).(*auth.Principal)
	return p
}

// userID is the caller id used in rate limit keys and request logs.
func userID(c echo.Context) string {
	if p := PrincipalFrom(c); p != nil {
		return strconv.FormatUint(p.SubjectID, 10)
	}
	return "anon"
}
