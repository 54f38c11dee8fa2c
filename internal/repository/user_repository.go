package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

const userColumns = "id, username, email, password_hash, real_name, role, status, last_login, created_at, updated_at"

// UserRepo reads and writes the `users` table. It satisfies auth.UserStore.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		realName  sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &realName,
		&u.Role, &u.Status, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.RealName = realName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *UserRepo) findOne(ctx context.Context, op, where string, arg any) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg)
	u, err := scanUser(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(model.ErrNotFound, op)
		}
		return nil, errors.Wrap(err, op)
	}
	return u, nil
}

// FindByUsername fetches a user by exact username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "find user by username", "username = ?", username)
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "find user by email", "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.findOne(ctx, "find user by id", "id = ?", id)
}

// TouchLastLogin records a successful login. Concurrent logins race; the
// last write wins.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at, id)
	return errors.Wrap(err, "touch last_login")
}

// Create inserts u and sets its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (username, email, password_hash, real_name, role, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q, u.Username, u.Email, u.PasswordHash,
		sql.NullString{String: u.RealName, Valid: u.RealName != ""}, u.Role, u.Status)
	if err != nil {
		return translate(err, "create user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "create user")
	}
	u.ID = uint64(id)
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", hash, id)
	return errors.Wrap(err, "update password")
}

// List returns a page of users ordered by id plus the total count.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*model.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, total, errors.Wrap(rows.Err(), "list users")
}

// UpdateAccess changes the role and/or status of an account. Nil arguments
// leave the column untouched.
func (r *UserRepo) UpdateAccess(ctx context.Context, id uint64, role *model.Role, status *model.Status) error {
	var (
		sets []string
		args []any
	)
	if role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *role)
	}
	if status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *status)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := "UPDATE users SET " + strings.Join(sets, ", ") + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.DB.ExecContext(ctx, q, args...)
	return errors.Wrap(err, "update user access")
}
