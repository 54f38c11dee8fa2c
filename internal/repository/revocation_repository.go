package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RevocationRepo is the token denylist. Each revoked token id is stored as
// its own key that expires together with the token, so the set never needs
// sweeping. It satisfies auth.Denylist.
type RevocationRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewRevocationRepo(rdb *redis.Client, prefix string) *RevocationRepo {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RevocationRepo{rdb: rdb, prefix: prefix}
}

func (r *RevocationRepo) key(tokenID string) string { return r.prefix + ":" + tokenID }

// Revoke denylists tokenID for ttl. Tokens that are already expired are
// ignored since the codec rejects them anyway.
func (r *RevocationRepo) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return errors.Wrap(r.rdb.Set(ctx, r.key(tokenID), 1, ttl).Err(), "revoke token")
}

// IsRevoked reports whether tokenID is on the denylist.
func (r *RevocationRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check revocation")
	}
	return n > 0, nil
}
