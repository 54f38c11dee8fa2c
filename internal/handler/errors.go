package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/middleware"
	"github.com/welllog/welllog-api/internal/model"
	"github.com/welllog/welllog-api/internal/repository"
)

// respondError translates domain and auth errors into HTTP responses.
// Unauthenticated and forbidden are never conflated; unexpected errors are
// logged and hidden behind a generic 500.
func respondError(c echo.Context, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	case auth.IsUnauthenticated(err):
		_, msg := middleware.AuthFailure(err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at most 72 bytes"})
	case errors.Is(err, auth.ErrDuplicateUser):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already registered"})
	case errors.Is(err, model.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource is still referenced"})
	}
	log.Error().Err(err).Str("method", c.Request().Method).Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
