package authkit_test

import (
	"context"
	"testing"

	authkit "github.com/go-authkit/authkit"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersCreateAndGet(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.Users().Create(ctx, &authkit.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, authkit.RoleUser, created.Role, "role defaults on create")

	byID, err := repo.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	byEmail, err := repo.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUsersCreateKeepsExplicitRole(t *testing.T) {
	repo, _ := setupTestDB(t)

	created, err := repo.Users().Create(context.Background(), &authkit.User{
		Email:        "root@example.com",
		PasswordHash: "hash",
		Role:         authkit.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, authkit.RoleAdmin, created.Role)
}

func TestUsersGetMissing(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.Users().GetByID(ctx, 12345)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	_, err = repo.Users().GetByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestUsersDuplicateEmailConflict(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.Users().Create(ctx, &authkit.User{
		Email:        "taken@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	_, err = repo.Users().Create(ctx, &authkit.User{
		Email:        "taken@example.com",
		PasswordHash: "other-hash",
	})
	require.Error(t, err)
	assert.True(t, authkit.IsConflictError(err))

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, "email", richErr.Metadata["field"])
}

func TestUsersUpdate(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.Users().Create(ctx, &authkit.User{
		Email:        "bob@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	created.Role = authkit.RoleAdmin
	updated, err := repo.Users().Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, authkit.RoleAdmin, updated.Role)

	reloaded, err := repo.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, authkit.RoleAdmin, reloaded.Role)
}

func TestUsersUpdateMissing(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.Users().Update(context.Background(), &authkit.User{
		ID:    9999,
		Email: "ghost@example.com",
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestUsersDelete(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.Users().Create(ctx, &authkit.User{
		Email:        "gone@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	require.NoError(t, repo.Users().Delete(ctx, created.ID))

	_, err = repo.Users().GetByID(ctx, created.ID)
	assert.True(t, goerrors.IsNotFound(err))

	err = repo.Users().Delete(ctx, created.ID)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestUsersList(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	emails := []string{
		"ann@example.com",
		"bob@example.com",
		"carol@sample.net",
		"dave@example.com",
		"erin@sample.net",
	}
	for _, email := range emails {
		_, err := repo.Users().Create(ctx, &authkit.User{
			Email:        email,
			PasswordHash: "hash",
		})
		require.NoError(t, err)
	}

	t.Run("pages in id order", func(t *testing.T) {
		users, total, err := repo.Users().List(ctx, authkit.UserListCriteria{Page: 1, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, users, 2)
		assert.Equal(t, "ann@example.com", users[0].Email)
		assert.Equal(t, "bob@example.com", users[1].Email)

		users, total, err = repo.Users().List(ctx, authkit.UserListCriteria{Page: 3, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, users, 1)
		assert.Equal(t, "erin@sample.net", users[0].Email)
	})

	t.Run("search filters by email substring", func(t *testing.T) {
		users, total, err := repo.Users().List(ctx, authkit.UserListCriteria{Search: "sample.net"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, users, 2)
		for _, u := range users {
			assert.Contains(t, u.Email, "sample.net")
		}
	})

	t.Run("out of range criteria are clamped", func(t *testing.T) {
		users, total, err := repo.Users().List(ctx, authkit.UserListCriteria{Page: -1, PerPage: -5})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, users, 5)
	})

	t.Run("empty page still reports the total", func(t *testing.T) {
		users, total, err := repo.Users().List(ctx, authkit.UserListCriteria{Page: 9, PerPage: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, users)
	})
}
