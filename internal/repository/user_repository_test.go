package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welllog/welllog-api/internal/model"
)

var userCols = []string{"id", "username", "email", "password_hash", "real_name", "role", "status", "last_login", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func TestUserRepo_FindByUsername(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = ? LIMIT 1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(7, "alice", "alice@example.com", "$2a$hash", nil, "manager", "active", now, now, now))

	u, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, model.RoleManager, u.Role)
	assert.Equal(t, model.StatusActive, u.Status)
	assert.Empty(t, u.RealName)
	require.NotNil(t, u.LastLogin)
	assert.True(t, now.Equal(*u.LastLogin))
}

func TestUserRepo_FindByEmail_NotFound(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.FindByEmail(context.Background(), "  Bob@Example.com ")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserRepo_Create(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("carol", "carol@example.com", "hash", sqlmock.AnyArg(), model.RoleUser, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(12, 1))

	u := &model.User{Username: "carol", Email: "carol@example.com", PasswordHash: "hash", Role: model.RoleUser, Status: model.StatusActive}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(12), u.ID)
}

func TestUserRepo_Create_Duplicate(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'carol' for key 'username'"})

	err := repo.Create(context.Background(), &model.User{Username: "carol"})
	assert.ErrorIs(t, err, model.ErrDuplicate)
}

func TestUserRepo_TouchLastLogin(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login = ? WHERE id = ?")).
		WithArgs(at, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastLogin(context.Background(), 3, at))
}

func TestUserRepo_UpdateAccess(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	role := model.RoleAdmin
	status := model.StatusBanned
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")).
		WithArgs(role, status, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAccess(context.Background(), 4, &role, &status))
	require.NoError(t, repo.UpdateAccess(context.Background(), 4, nil, nil))
}

func TestUserRepo_List(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id LIMIT ? OFFSET ?")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "admin", "admin@example.com", "h", "Admin", "admin", "active", nil, now, now).
			AddRow(2, "alice", "alice@example.com", "h", nil, "user", "inactive", nil, now, now))

	users, total, err := repo.List(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, "Admin", users[0].RealName)
	assert.Nil(t, users[1].LastLogin)
}

func TestUserRepo_DriverErrorIsWrapped(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewUserRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM users WHERE id").WillReturnError(boom)

	_, err := repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "find user by id")
}
