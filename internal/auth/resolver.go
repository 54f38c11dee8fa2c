package auth

import (
	"strings"
)

const bearerScheme = "bearer "

// Resolver turns an inbound bearer credential into a Principal. It only does
// signature math: the role is trusted from the token as issued, so a role
// change takes effect at the next login or refresh.
type Resolver struct {
	codec *Codec
}

// NewResolver returns a Resolver decoding tokens with codec.
func NewResolver(codec *Codec) *Resolver {
	return &Resolver{codec: codec}
}

// Resolve strips an optional Bearer prefix, decodes the token and requires
// it to be an access token.
func (r *Resolver) Resolve(bearer string) (Principal, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) >= len(bearerScheme) && strings.EqualFold(raw[:len(bearerScheme)], bearerScheme) {
		raw = strings.TrimSpace(raw[len(bearerScheme):])
	}
	if raw == "" || strings.EqualFold(raw, strings.TrimSpace(bearerScheme)) {
		return Principal{}, ErrMissingCredential
	}

	claims, err := r.codec.Decode(raw)
	if err != nil {
		return Principal{}, err
	}
	if claims.Type != TokenAccess {
		return Principal{}, ErrWrongTokenType
	}
	id, err := claims.SubjectID()
	if err != nil {
		return Principal{}, err
	}
	if !claims.Role.Valid() {
		return Principal{}, ErrTokenMalformed
	}
	return Principal{
		SubjectID: id,
		Role:      claims.Role,
		TokenType: claims.Type,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
