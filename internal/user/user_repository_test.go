package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/dbmysql/dbtest"
)

func TestUserRepository_Lifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &dbmysql.User{Handle: "acme_labs", PasswordHash: "x", Role: common.RoleStartup}
	require.NoError(t, repo.CreateUser(ctx, u))
	require.NotZero(t, u.UserID)
	assert.Equal(t, "active", u.Status)

	got, err := repo.GetUserByHandle(ctx, "acme_labs")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	exists, err := repo.CheckUserExists(ctx, "acme_labs")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, u.UserID+100)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetUserByID(ctx, u.UserID+100)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetUserByHandle(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserRepository_SuspendedUserIsNotFound(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &dbmysql.User{Handle: "paused", PasswordHash: "x", Role: common.RoleInvestor, Status: "suspended"}
	require.NoError(t, repo.CreateUser(ctx, u))

	exists, err := repo.Exists(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetUserByID(ctx, u.UserID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
