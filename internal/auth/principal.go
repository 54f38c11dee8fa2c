package auth

import (
	"time"

	"github.com/welllog/welllog-api/internal/model"
)

// Principal is the identity resolved from a valid access token. It is rebuilt
// on every request and carries the token's id and expiry so that nothing
// derived from it outlives the token.
type Principal struct {
	SubjectID uint64
	Role      model.Role
	TokenType TokenType
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }
