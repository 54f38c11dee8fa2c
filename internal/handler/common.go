package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/middleware"
)

const requestTimeout = 5 * time.Second

// Paging holds the page size defaults applied to list endpoints.
type Paging struct {
	Default int
	Max     int
}

// page reads skip and limit query parameters, clamped to p.
func (p Paging) page(c echo.Context) (offset, limit int) {
	limit = p.Default
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if p.Max > 0 && limit > p.Max {
		limit = p.Max
	}
	if v, err := strconv.Atoi(c.QueryParam("skip")); err == nil && v > 0 {
		offset = v
	}
	return offset, limit
}

type pageResp[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func newPage[T any](items []T, total, skip, limit int) pageResp[T] {
	if items == nil {
		items = []T{}
	}
	return pageResp[T]{Items: items, Total: total, Skip: skip, Limit: limit}
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return err
	}
	return nil
}

// currentPrincipal returns the authenticated caller.
func currentPrincipal(c echo.Context) (auth.Principal, error) {
	return auth.RequireAuthenticated(middleware.PrincipalFrom(c))
}

// authorizeOwner is the single ownership check used by every
// resource-scoped handler: admins and the owner pass, everyone else gets
// auth.ErrForbidden.
func authorizeOwner(c echo.Context, ownerID uint64) (auth.Principal, error) {
	return auth.RequireOwnerOrAdmin(middleware.PrincipalFrom(c), ownerID)
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
