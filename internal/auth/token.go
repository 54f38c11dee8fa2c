package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/welllog/welllog-api/internal/model"
)

// TokenType marks what a token may be used for. Access tokens authorize API
// calls; refresh tokens only mint new access tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the signed payload of every token. Role is only present on
// access tokens; refresh re-reads it from the user store.
type Claims struct {
	Role model.Role `json:"role,omitempty"`
	Type TokenType  `json:"type"`
	jwt.RegisteredClaims
}

// SubjectID parses the numeric user id carried in the subject claim.
func (c *Claims) SubjectID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrTokenMalformed, c.Subject)
	}
	return id, nil
}

// Token is a signed token string with the metadata callers need to report
// or revoke it.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Codec issues and decodes HS256 tokens. It is safe for concurrent use.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithLeeway tolerates clock skew between issuing and verifying hosts.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) {
		if d > 0 {
			c.leeway = d
		}
	}
}

// NewCodec builds a Codec signing with secret. The TTLs are the defaults
// returned by AccessTTL and RefreshTTL.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token signing secret must be provided")
	}
	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		// Claims validation is done by Decode after the signature check so the
		// expiry decision uses our clock and leeway.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccessTTL is the configured lifetime of access tokens.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the configured lifetime of refresh tokens.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs an access token for subjectID carrying role.
func (c *Codec) IssueAccessToken(subjectID uint64, role model.Role, ttl time.Duration) (Token, error) {
	return c.issue(Claims{Role: role, Type: TokenAccess}, subjectID, ttl)
}

// IssueRefreshToken signs a refresh token for subjectID. No role is embedded.
func (c *Codec) IssueRefreshToken(subjectID uint64, ttl time.Duration) (Token, error) {
	return c.issue(Claims{Type: TokenRefresh}, subjectID, ttl)
}

func (c *Codec) issue(claims Claims, subjectID uint64, ttl time.Duration) (Token, error) {
	now := c.now().UTC()
	exp := expiry(now, ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(subjectID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", claims.Type, err)
	}
	return Token{Value: signed, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// expiry is now+ttl rounded up to the whole second the exp claim can hold,
// so a positive ttl never yields a token that is already expired.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp.Truncate(time.Second)
	}
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// Decode verifies the signature of raw and then its expiry. Any structural,
// algorithm or signature problem is ErrTokenMalformed; a genuine token past
// its expiry is ErrTokenExpired.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing exp or sub", ErrTokenMalformed)
	}
	if claims.Type != TokenAccess && claims.Type != TokenRefresh {
		return nil, fmt.Errorf("%w: unknown type %q", ErrTokenMalformed, claims.Type)
	}
	if !c.now().Before(claims.ExpiresAt.Time.Add(c.leeway)) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
