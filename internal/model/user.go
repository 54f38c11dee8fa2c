package model

import "time"

// Role is the closed set of account roles embedded in access tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Status is the lifecycle state of an account. Only active accounts may log in.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusBanned:
		return true
	}
	return false
}

// User represents an account as stored in the `users` table. PasswordHash
// never leaves the repository and auth layers; handlers build their own
// response types.
//
// Fields:
//
//	ID           – primary key identifier.
//	Username     – unique login name.
//	Email        – unique email, also accepted as login name.
//	PasswordHash – bcrypt hash of the password.
//	RealName     – optional display name.
//	Role         – admin, manager or user.
//	Status       – active, inactive or banned.
//	LastLogin    – time of the last successful login (nil if never).
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	RealName     string
	Role         Role
	Status       Status
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
