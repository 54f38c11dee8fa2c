package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/welllog/welllog-api/internal/model"
)

type memUsers struct {
	mu       sync.Mutex
	byID     map[uint64]*model.User
	nextID   uint64
	touchErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]*model.User{}, nextID: 1}
}

func (m *memUsers) add(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID
	m.nextID++
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	if u, ok := m.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			m.mu.Unlock()
			return model.ErrDuplicate
		}
	}
	m.mu.Unlock()
	m.add(u)
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) set(id uint64, fn func(u *model.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.byID[id])
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMemDenylist() *memDenylist {
	return &memDenylist{revoked: map[string]time.Duration{}}
}

func (d *memDenylist) Revoke(_ context.Context, id string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = ttl
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Action)
	}
	return out
}

type sessionFixture struct {
	svc    *Service
	codec  *Codec
	users  *memUsers
	deny   *memDenylist
	events *recordingPublisher
	alice  *model.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	hasher := NewHasher(bcrypt.MinCost)
	codec := newTestCodec(t)
	users := newMemUsers()
	deny := newMemDenylist()
	events := &recordingPublisher{}

	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)
	alice := users.add(&model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         model.RoleUser,
		Status:       model.StatusActive,
	})

	svc := NewService(users, hasher, codec, WithDenylist(deny), WithEvents(events))
	return &sessionFixture{svc: svc, codec: codec, users: users, deny: deny, events: events, alice: alice}
}

func TestLogin_ByUsernameAndEmail(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, login := range []string{"alice", "alice@example.com", "  Alice@Example.com "} {
		res, err := f.svc.Login(ctx, login, "correct-horse")
		require.NoError(t, err, login)

		assert.Equal(t, UserSummary{ID: f.alice.ID, Username: "alice", Email: "alice@example.com", Role: model.RoleUser}, res.User)

		access, err := f.codec.Decode(res.Access.Value)
		require.NoError(t, err)
		assert.Equal(t, TokenAccess, access.Type)
		assert.Equal(t, model.RoleUser, access.Role)

		refresh, err := f.codec.Decode(res.Refresh.Value)
		require.NoError(t, err)
		assert.Equal(t, TokenRefresh, refresh.Type)
	}

	stored, err := f.users.FindByID(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}

func TestLogin_Failures(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Login(ctx, "", "correct-horse")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	f.users.set(f.alice.ID, func(u *model.User) { u.Status = model.StatusBanned })
	_, err = f.svc.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	f.users.set(f.alice.ID, func(u *model.User) {
		u.Status = model.StatusActive
		u.PasswordHash = "garbage"
	})
	_, err = f.svc.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrCorruptCredential)

	assert.NotContains(t, f.events.actions(), ActionLogin)
	assert.Contains(t, f.events.actions(), ActionLoginFailed)
}

func TestLogin_LastLoginFailureIsNotFatal(t *testing.T) {
	f := newSessionFixture(t)
	f.users.touchErr = errors.New("db down")

	res, err := f.svc.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Access.Value)
}

func TestRefresh_ReReadsRole(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	f.users.set(f.alice.ID, func(u *model.User) { u.Role = model.RoleAdmin })

	res, err := f.svc.Refresh(ctx, login.Refresh.Value)
	require.NoError(t, err)
	assert.Equal(t, login.Refresh.Value, res.RefreshToken)
	assert.Equal(t, model.RoleAdmin, res.User.Role)

	claims, err := f.codec.Decode(res.Access.Value)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, TokenAccess, claims.Type)

	// the old access token keeps its role until expiry
	old, err := f.codec.Decode(login.Access.Value)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, old.Role)
}

func TestRefresh_Failures(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, login.Access.Value)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = f.svc.Refresh(ctx, "junk")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	expired, err := f.codec.IssueRefreshToken(f.alice.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, expired.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)

	ghost, err := f.codec.IssueRefreshToken(999, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, ghost.Value)
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.users.set(f.alice.ID, func(u *model.User) { u.Status = model.StatusInactive })
	_, err = f.svc.Refresh(ctx, login.Refresh.Value)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefresh_DenylistErrorFailsClosed(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	f.deny.err = errors.New("redis unavailable")
	_, err = f.svc.Refresh(ctx, login.Refresh.Value)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.True(t, IsUnauthenticated(err))
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	p, err := NewResolver(f.codec).Resolve("Bearer " + login.Access.Value)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, p, login.Refresh.Value))

	assert.ErrorIs(t, f.svc.IsRevoked(ctx, p.TokenID), ErrTokenRevoked)
	assert.Greater(t, f.deny.revoked[p.TokenID], time.Duration(0))

	_, err = f.svc.Refresh(ctx, login.Refresh.Value)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Contains(t, f.events.actions(), ActionLogout)
}

func TestLogout_IgnoresForeignRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	p, err := NewResolver(f.codec).Resolve(login.Access.Value)
	require.NoError(t, err)

	other, err := f.codec.IssueRefreshToken(p.SubjectID+1, time.Hour)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, p, other.Value))
	_, revoked := f.deny.revoked[other.ID]
	assert.False(t, revoked)
	_, revoked = f.deny.revoked[p.TokenID]
	assert.True(t, revoked)
}

func TestLogout_WithoutDenylistIsNoop(t *testing.T) {
	svc := NewService(newMemUsers(), NewHasher(bcrypt.MinCost), newTestCodec(t))
	assert.NoError(t, svc.Logout(context.Background(), Principal{SubjectID: 1, TokenID: "x", ExpiresAt: time.Now().Add(time.Hour)}, ""))
	assert.NoError(t, svc.IsRevoked(context.Background(), "x"))
}

func TestRegister(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "Bob@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, model.StatusActive, u.Status)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	res, err := f.svc.Login(ctx, "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestLogin_EventCarriesClientIP(t *testing.T) {
	f := newSessionFixture(t)
	ctx := WithClientIP(context.Background(), "10.0.0.7")

	_, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	require.NotEmpty(t, f.events.events)
	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, ActionLogin, last.Action)
	assert.Equal(t, "10.0.0.7", last.ClientIP)
	assert.False(t, last.At.IsZero())
}

func TestChangePassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, f.alice.ID, "wrong", "new-password-1")
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, f.alice.ID, "correct-horse", "new-password-1"))

	_, err = f.svc.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = f.svc.Login(ctx, "alice", "new-password-1")
	assert.NoError(t, err)

	err = f.svc.ChangePassword(ctx, 404, "x", "y")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetPassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	u, err := f.svc.ResetPassword(ctx, f.alice.ID, "set-by-admin-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.svc.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = f.svc.Login(ctx, "alice", "set-by-admin-1")
	assert.NoError(t, err)
	assert.Contains(t, f.events.actions(), ActionPasswordSet)

	_, err = f.svc.ResetPassword(ctx, 404, "set-by-admin-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.svc.ResetPassword(ctx, f.alice.ID, strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
