package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/user"
)

func seedUsers(t *testing.T, repo *UserRepository) {
	t.Helper()
	ctx := context.Background()
	active, inactive := true, false
	seed := []user.User{
		{Name: "Alice Smith", Username: "alice1", Email: "alice@test.com", IsActive: &active, Roles: []string{user.RoleStudent}},
		{Name: "Bob Stone", Username: "bob123", Email: "bob@test.com", IsActive: &active, Roles: []string{user.RoleInstructor}},
		{Name: "Carol King", Username: "carol1", Email: "carol@test.com", IsActive: &inactive, Roles: []string{user.RoleStudent}},
	}
	for i, usr := range seed {
		usr.CreatedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		_, err := repo.CreateUser(ctx, usr)
		require.NoError(t, err)
	}
}

func TestQueryUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	t.Run("no filter returns all", func(t *testing.T) {
		page, err := repo.QueryUsers(ctx, nil, listing.NewParams())
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalCount)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("search matches name case-insensitively", func(t *testing.T) {
		page, err := repo.QueryUsers(ctx, &user.QueryFilter{Search: "sto"}, listing.NewParams())
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Bob Stone", page.Items[0].Name)
	})

	t.Run("role and active filters AND together", func(t *testing.T) {
		active := true
		qf := &user.QueryFilter{Roles: []string{user.RoleStudent}, IsActive: &active}
		page, err := repo.QueryUsers(ctx, qf, listing.NewParams())
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Alice Smith", page.Items[0].Name)
	})

	t.Run("sort by created_at descending", func(t *testing.T) {
		params := listing.NewParams()
		params.SetSort("created_at", false)
		page, err := repo.QueryUsers(ctx, nil, params)
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		assert.Equal(t, "Carol King", page.Items[0].Name)
	})

	t.Run("paging clamps past the last page", func(t *testing.T) {
		params := listing.NewParams()
		params.PageSize = 2
		params.Page = 9
		page, err := repo.QueryUsers(ctx, nil, params)
		require.NoError(t, err)
		assert.Equal(t, 2, page.CurrentPage)
		assert.Len(t, page.Items, 1)
	})
}

func TestCheckUsernameUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	err := repo.CheckUsernameUniqueness(ctx, "ALICE1", "")
	assert.Equal(t, user.ErrUsernameExists, err)

	err = repo.CheckUsernameUniqueness(ctx, "", "Bob@Test.com")
	assert.Equal(t, user.ErrEmailExists, err)

	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "newuser", "new@test.com"))

	// excluding the owner allows keeping one's own username
	alice, err := repo.GetUserByUsername(ctx, "alice1")
	require.NoError(t, err)
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "alice1", "alice@test.com", alice))
}
