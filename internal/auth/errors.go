package auth

import "errors"

// Token and credential failures. Handlers translate these to HTTP status
// codes; the auth package never writes responses itself.
var (
	ErrMissingCredential = errors.New("auth: missing bearer credential")
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrTokenMalformed    = errors.New("auth: token malformed or signature invalid")
	ErrWrongTokenType    = errors.New("auth: wrong token type")
	ErrTokenRevoked      = errors.New("auth: token revoked")

	ErrCorruptCredential = errors.New("auth: stored credential is unreadable")
	ErrUserNotFound      = errors.New("auth: user not found")
	ErrWrongPassword     = errors.New("auth: wrong password")
	ErrAccountDisabled   = errors.New("auth: account disabled")
	ErrDuplicateUser     = errors.New("auth: username or email already registered")
	ErrPasswordTooLong   = errors.New("auth: password exceeds 72 bytes")

	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")
)

// IsUnauthenticated reports whether err should surface as HTTP 401.
func IsUnauthenticated(err error) bool {
	switch {
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrWrongTokenType),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrUnauthenticated):
		return true
	}
	return false
}
