package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/model"
)

// AdminUserStore is the account management the admin endpoints need.
type AdminUserStore interface {
	List(ctx context.Context, offset, limit int) ([]*model.User, int, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	UpdateAccess(ctx context.Context, id uint64, role *model.Role, status *model.Status) error
}

// AuditReader pages through the audit trail.
type AuditReader interface {
	List(ctx context.Context, userID uint64, offset, limit int) ([]*model.AuditEntry, error)
}

// PasswordResetter sets a password without knowing the current one.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, userID uint64, next string) (*model.User, error)
}

// AdminHandler serves /admin. Routes are mounted behind RequireAdmin.
type AdminHandler struct {
	Users     AdminUserStore
	Audit     AuditReader
	Passwords PasswordResetter
	Paging    Paging
}

func NewAdminHandler(u AdminUserStore, a AuditReader, pw PasswordResetter, paging Paging) *AdminHandler {
	return &AdminHandler{Users: u, Audit: a, Passwords: pw, Paging: paging}
}

type resetPasswordReq struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type accessReq struct {
	Role   *model.Role   `json:"role"`
	Status *model.Status `json:"status"`
}

// ListUsers pages through every account.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	offset, limit := h.Paging.page(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, newPage(out, total, offset, limit))
}

// UpdateUser changes the role and/or status of an account. A role change
// reaches the user's tokens on their next refresh; a disabled account can
// no longer log in or refresh. Admins cannot change their own access.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req accessReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, badRequest("invalid body"))
	}
	switch {
	case req.Role == nil && req.Status == nil:
		return respondError(c, badRequest("role or status is required"))
	case req.Role != nil && !req.Role.Valid():
		return respondError(c, badRequest("role must be one of: admin manager user"))
	case req.Status != nil && !req.Status.Valid():
		return respondError(c, badRequest("status must be one of: active inactive banned"))
	case id == p.SubjectID:
		return respondError(c, badRequest("cannot change your own role or status"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Users.FindByID(ctx, id); err != nil {
		return respondError(c, err)
	}
	if err := h.Users.UpdateAccess(ctx, id, req.Role, req.Status); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	log.Info().Uint64("admin_id", p.SubjectID).Uint64("user_id", id).
		Str("role", string(u.Role)).Str("status", string(u.Status)).Msg("user access changed")
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ResetPassword sets a new password for any account.
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	u, err := h.Passwords.ResetPassword(ctx, id, req.NewPassword)
	if errors.Is(err, auth.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return respondError(c, err)
	}
	log.Info().Uint64("admin_id", p.SubjectID).Uint64("user_id", id).Msg("password reset by admin")
	return c.JSON(http.StatusOK, echo.Map{"user_id": u.ID, "username": u.Username, "message": "password reset"})
}

type auditResp struct {
	ID           uint64    `json:"id"`
	UserID       *uint64   `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   *uint64   `json:"resource_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLogs lists audit entries, newest first. ?user_id= filters.
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	var userID uint64
	if v := c.QueryParam("user_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return respondError(c, badRequest("invalid user_id"))
		}
		userID = n
	}
	offset, limit := h.Paging.page(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	entries, err := h.Audit.List(ctx, userID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]auditResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResp{
			ID: e.ID, UserID: e.UserID, Action: e.Action, ResourceType: e.ResourceType,
			ResourceID: e.ResourceID, Detail: e.Detail, IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
