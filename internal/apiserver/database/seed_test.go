package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/config"
)

func TestInitSuperAdmin(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	cfg := &config.SuperAdminConfig{Username: "root", Password: "root-password"}

	require.NoError(t, InitSuperAdmin(db, cfg))

	user, err := db.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("root-password")))

	grant, err := db.FindUserRole(ctx, user.ID, cnst.RoleSuperAdmin, nil, nil)
	require.NoError(t, err)
	assert.True(t, grant.IsActive)

	// Idempotent: a second run changes nothing
	require.NoError(t, InitSuperAdmin(db, cfg))
	grants, err := db.ListActiveUserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestInitSuperAdmin_SkipsWhenUnconfigured(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, InitSuperAdmin(db, &config.SuperAdminConfig{}))
	users, err := db.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
