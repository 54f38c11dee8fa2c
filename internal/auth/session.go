package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/model"
)

// UserStore is the credential lookup the login flow depends on. Missing rows
// are reported with an error matching model.ErrNotFound.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	Create(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Event is an audit record emitted by the session flow.
type Event struct {
	Action   string
	UserID   uint64
	Login    string
	Reason   string
	At       time.Time
	ClientIP string
}

// Audit actions.
const (
	ActionLogin        = "auth.login"
	ActionLoginFailed  = "auth.login_failed"
	ActionRefresh      = "auth.refresh"
	ActionLogout       = "auth.logout"
	ActionRegister     = "auth.register"
	ActionPassword     = "auth.password_changed"
	ActionPasswordSet  = "auth.password_reset"
	ActionRefreshError = "auth.refresh_failed"
)

// EventPublisher delivers audit events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// UserSummary is the non-sensitive view of an account returned to clients.
type UserSummary struct {
	ID       uint64     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

// Summarize builds the client view of u.
func Summarize(u *model.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Access  Token
	Refresh Token
	User    UserSummary
}

// RefreshResult is returned by a successful refresh. The refresh token is
// echoed back unchanged since refresh tokens are not rotated.
type RefreshResult struct {
	Access       Token
	RefreshToken string
	User         UserSummary
}

// RegisterInput carries the fields of a self-service registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	RealName string
}

// Service orchestrates login, refresh, logout and registration.
type Service struct {
	users    UserStore
	hasher   *Hasher
	codec    *Codec
	denylist Denylist
	events   EventPublisher
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithDenylist enables token revocation on logout and refresh.
func WithDenylist(d Denylist) ServiceOption {
	return func(s *Service) { s.denylist = d }
}

// WithEvents publishes audit events for every session operation.
func WithEvents(p EventPublisher) ServiceOption {
	return func(s *Service) { s.events = p }
}

// NewService wires the session flow.
func NewService(users UserStore, hasher *Hasher, codec *Codec, opts ...ServiceOption) *Service {
	s := &Service{users: users, hasher: hasher, codec: codec}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues an access/refresh pair. The login
// name is tried as a username first, then as an email.
func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)

	u, err := s.lookup(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.fail(ctx, 0, login, err)
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		s.fail(ctx, u.ID, login, err)
		return nil, err
	}
	if !ok {
		s.fail(ctx, u.ID, login, ErrWrongPassword)
		return nil, ErrWrongPassword
	}
	if u.Status != model.StatusActive {
		s.fail(ctx, u.ID, login, ErrAccountDisabled)
		return nil, ErrAccountDisabled
	}

	access, err := s.codec.IssueAccessToken(u.ID, u.Role, s.codec.AccessTTL())
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefreshToken(u.ID, s.codec.RefreshTTL())
	if err != nil {
		return nil, err
	}

	// last_login is telemetry; a failed write must not fail the login.
	if err := s.users.TouchLastLogin(ctx, u.ID, s.codec.now().UTC()); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("update last_login failed")
	}

	log.Info().Uint64("user_id", u.ID).Str("role", string(u.Role)).Msg("login succeeded")
	s.publish(ctx, Event{Action: ActionLogin, UserID: u.ID, Login: login})

	return &LoginResult{Access: access, Refresh: refresh, User: Summarize(u)}, nil
}

func (s *Service) lookup(ctx context.Context, login string) (*model.User, error) {
	if login == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.users.FindByUsername(ctx, login)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	u, err = s.users.FindByEmail(ctx, strings.ToLower(login))
	if err == nil {
		return u, nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return nil, fmt.Errorf("find user by email: %w", err)
}

// Refresh exchanges a refresh token for a new access token. The role is read
// from the current user record, not from the refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	raw := strings.TrimSpace(refreshToken)
	claims, err := s.codec.Decode(raw)
	if err != nil {
		s.refreshFailed(ctx, 0, err)
		return nil, err
	}
	if claims.Type != TokenRefresh {
		s.refreshFailed(ctx, 0, ErrWrongTokenType)
		return nil, ErrWrongTokenType
	}
	id, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		s.refreshFailed(ctx, id, err)
		return nil, err
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.refreshFailed(ctx, id, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if u.Status != model.StatusActive {
		s.refreshFailed(ctx, id, ErrAccountDisabled)
		return nil, ErrAccountDisabled
	}

	access, err := s.codec.IssueAccessToken(u.ID, u.Role, s.codec.AccessTTL())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, Event{Action: ActionRefresh, UserID: u.ID})
	return &RefreshResult{Access: access, RefreshToken: raw, User: Summarize(u)}, nil
}

// checkRevoked fails closed: a denylist that cannot be read rejects the token.
func (s *Service) checkRevoked(ctx context.Context, tokenID string) error {
	if s.denylist == nil {
		return nil
	}
	revoked, err := s.denylist.IsRevoked(ctx, tokenID)
	if err != nil {
		log.Error().Err(err).Msg("revocation lookup failed")
		return fmt.Errorf("%w: revocation lookup failed", ErrUnauthenticated)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// IsRevoked reports whether an access token id was revoked by logout.
func (s *Service) IsRevoked(ctx context.Context, tokenID string) error {
	return s.checkRevoked(ctx, tokenID)
}

// Logout revokes the caller's access token and, when it belongs to the same
// subject, the supplied refresh token. Without a denylist it is a no-op and
// clients simply discard their tokens.
func (s *Service) Logout(ctx context.Context, p Principal, refreshToken string) error {
	if s.denylist == nil {
		return nil
	}
	now := s.codec.now()
	if ttl := p.ExpiresAt.Sub(now); ttl > 0 && p.TokenID != "" {
		if err := s.denylist.Revoke(ctx, p.TokenID, ttl); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if raw := strings.TrimSpace(refreshToken); raw != "" {
		claims, err := s.codec.Decode(raw)
		if err == nil && claims.Type == TokenRefresh {
			if id, idErr := claims.SubjectID(); idErr == nil && id == p.SubjectID {
				ttl := claims.ExpiresAt.Time.Sub(now)
				if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
					return fmt.Errorf("revoke refresh token: %w", err)
				}
			}
		}
	}
	s.publish(ctx, Event{Action: ActionLogout, UserID: p.SubjectID})
	return nil
}

// Register creates an active account with the user role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		RealName:     strings.TrimSpace(in.RealName),
		Role:         model.RoleUser,
		Status:       model.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.publish(ctx, Event{Action: ActionRegister, UserID: u.ID, Login: u.Username})
	return u, nil
}

// ChangePassword replaces the password of userID after checking the current
// one. Tokens already issued stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user by id: %w", err)
	}
	ok, err := s.hasher.Verify(current, u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn().Uint64("user_id", userID).Msg("password change with wrong current password")
		return ErrWrongPassword
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.publish(ctx, Event{Action: ActionPassword, UserID: userID})
	return nil
}

// ResetPassword sets a new password for userID without the current one. It
// backs the admin reset and is never reachable by the account itself.
func (s *Service) ResetPassword(ctx context.Context, userID uint64, next string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	log.Info().Uint64("user_id", userID).Msg("password reset")
	s.publish(ctx, Event{Action: ActionPasswordSet, UserID: userID, Login: u.Username})
	return u, nil
}

func (s *Service) fail(ctx context.Context, userID uint64, login string, reason error) {
	log.Warn().Str("login", login).Uint64("user_id", userID).Err(reason).Msg("login failed")
	s.publish(ctx, Event{Action: ActionLoginFailed, UserID: userID, Login: login, Reason: reason.Error()})
}

func (s *Service) refreshFailed(ctx context.Context, userID uint64, reason error) {
	log.Warn().Uint64("user_id", userID).Err(reason).Msg("refresh rejected")
	s.publish(ctx, Event{Action: ActionRefreshError, UserID: userID, Reason: reason.Error()})
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.codec.now().UTC()
	}
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		ev.ClientIP = ip
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("action", ev.Action).Msg("publish audit event failed")
	}
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}
