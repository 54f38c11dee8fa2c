package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/metrics"
	"github.com/welllog/welllog-api/internal/model"
)

// SessionService is the session flow the auth endpoints drive.
type SessionService interface {
	Login(ctx context.Context, login, password string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.RefreshResult, error)
	Logout(ctx context.Context, p auth.Principal, refreshToken string) error
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID uint64, current, next string) error
}

// UserReader loads accounts by id.
type UserReader interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// AuthHandler bundles dependencies for auth and current-user endpoints.
type AuthHandler struct {
	Sessions SessionService
	Users    UserReader
}

func NewAuthHandler(s SessionService, u UserReader) *AuthHandler {
	return &AuthHandler{Sessions: s, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RealName string `json:"real_name" validate:"max=100"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type tokenResp struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	User         auth.UserSummary `json:"user"`
}

type userResp struct {
	ID        uint64       `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	RealName  string       `json:"real_name,omitempty"`
	Role      model.Role   `json:"role"`
	Status    model.Status `json:"status"`
	LastLogin *time.Time   `json:"last_login,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func toUserResp(u *model.User) userResp {
	return userResp{
		ID: u.ID, Username: u.Username, Email: u.Email, RealName: u.RealName,
		Role: u.Role, Status: u.Status, LastLogin: u.LastLogin, CreatedAt: u.CreatedAt,
	}
}

func expiresIn(t auth.Token) int64 {
	secs := int64(time.Until(t.ExpiresAt) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

func withClientIP(c echo.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := requestContext(c)
	return auth.WithClientIP(ctx, c.RealIP()), cancel
}

// Register creates an active user-role account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	u, err := h.Sessions.Register(ctx, auth.RegisterInput{
		Username: req.Username, Email: req.Email, Password: req.Password, RealName: req.RealName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, auth.Summarize(u))
}

// Login accepts a username or an email in the username field. Unknown users
// and wrong passwords get the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	res, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound),
			errors.Is(err, auth.ErrWrongPassword),
			errors.Is(err, auth.ErrCorruptCredential):
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, auth.ErrAccountDisabled):
			metrics.Logins.WithLabelValues("disabled").Inc()
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		}
		metrics.Logins.WithLabelValues("error").Inc()
		return respondError(c, err)
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  res.Access.Value,
		RefreshToken: res.Refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn(res.Access),
		User:         res.User,
	})
}

// Refresh exchanges a refresh token for a new access token. Every failure is
// a 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	res, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if auth.IsUnauthenticated(err) {
			return respondError(c, err)
		}
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrAccountDisabled) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  res.Access.Value,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn(res.Access),
		User:         res.User,
	})
}

// Logout revokes the presented access token and, if supplied in the body,
// the refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	var req logoutReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return respondError(c, badRequest("invalid body"))
		}
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, p, strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Verify reports the identity carried by a valid access token.
func (h *AuthHandler) Verify(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":      true,
		"user_id":    p.SubjectID,
		"role":       p.Role,
		"expires_at": p.ExpiresAt,
	})
}

// Me returns the stored record of the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.SubjectID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ChangePassword updates the caller's password after checking the current
// one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return respondError(c, err)
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withClientIP(c)
	defer cancel()

	err = h.Sessions.ChangePassword(ctx, p.SubjectID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrCorruptCredential):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password is incorrect"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return respondError(c, err)
}

