package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/metrics"
)

// Resolver turns an Authorization header into a principal.
type Resolver interface {
	Resolve(bearer string) (auth.Principal, error)
}

// RevocationChecker returns auth.ErrTokenRevoked for a revoked token id and
// a wrapped auth.ErrUnauthenticated when the denylist cannot be read.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) error
}

// AuthFailure classifies err for metrics and the client message. Expired
// tokens get their own message so clients know to refresh; malformed and
// wrong-type tokens share one.
func AuthFailure(err error) (reason, message string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing", "missing bearer token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired", "session expired, please log in again"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_type", "invalid token"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed", "invalid token"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked", "token has been revoked"
	default:
		return "internal", "authentication failed"
	}
}

// Authenticate validates the bearer access token and stores the resolved
// principal for downstream handlers. Every failure, including internal ones,
// is answered with 401. revoked may be nil.
func Authenticate(resolver Resolver, revoked RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := resolver.Resolve(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil && revoked != nil {
				err = revoked.IsRevoked(c.Request().Context(), p.TokenID)
			}
			if err != nil {
				reason, msg := AuthFailure(err)
				metrics.AuthFailures.WithLabelValues(reason).Inc()
				ev := log.Debug()
				if reason == "wrong_type" || reason == "internal" {
					ev = log.Warn()
				}
				ev.Err(err).Str("reason", reason).Str("path", c.Path()).Str("ip", c.RealIP()).Msg("bearer rejected")

				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}
