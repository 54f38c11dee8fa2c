package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/welllog/welllog-api/internal/model"
)

func TestRequireAuthenticated(t *testing.T) {
	_, err := RequireAuthenticated(nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	p, err := RequireAuthenticated(&Principal{SubjectID: 3, Role: model.RoleUser})
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), p.SubjectID)
}

func TestRequireAdmin(t *testing.T) {
	_, err := RequireAdmin(nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	for _, role := range []model.Role{model.RoleUser, model.RoleManager} {
		_, err := RequireAdmin(&Principal{SubjectID: 1, Role: role})
		assert.ErrorIs(t, err, ErrForbidden, role)
	}

	_, err = RequireAdmin(&Principal{SubjectID: 1, Role: model.RoleAdmin})
	assert.NoError(t, err)
}

func TestRequireOwnerOrAdmin_Grid(t *testing.T) {
	roles := []model.Role{model.RoleAdmin, model.RoleManager, model.RoleUser}
	ids := []uint64{1, 2, 3}

	for _, role := range roles {
		for _, subject := range ids {
			for _, owner := range ids {
				name := fmt.Sprintf("%s/subject=%d/owner=%d", role, subject, owner)
				t.Run(name, func(t *testing.T) {
					_, err := RequireOwnerOrAdmin(&Principal{SubjectID: subject, Role: role}, owner)
					if role == model.RoleAdmin || subject == owner {
						assert.NoError(t, err)
					} else {
						assert.ErrorIs(t, err, ErrForbidden)
					}
				})
			}
		}
	}
}

func TestRequireOwnerOrAdmin_Unauthenticated(t *testing.T) {
	_, err := RequireOwnerOrAdmin(nil, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrForbidden)
}
