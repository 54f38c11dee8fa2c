package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRevocationRepo(t *testing.T) (*RevocationRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRevocationRepo(rdb, ""), mr
}

func TestRevocationRepo_RevokeAndExpire(t *testing.T) {
	repo, mr := newRevocationRepo(t)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("revoked:jti-1"))

	mr.FastForward(2 * time.Minute)
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationRepo_IgnoresExpiredTokens(t *testing.T) {
	repo, mr := newRevocationRepo(t)

	require.NoError(t, repo.Revoke(context.Background(), "jti-2", 0))
	require.NoError(t, repo.Revoke(context.Background(), "", time.Minute))
	assert.Empty(t, mr.Keys())
}

func TestRevocationRepo_ServerDown(t *testing.T) {
	repo, mr := newRevocationRepo(t)
	mr.Close()

	_, err := repo.IsRevoked(context.Background(), "jti-3")
	assert.Error(t, err)
}
