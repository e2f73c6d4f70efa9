package user_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gopimeda/elearning/core/user"
	emailsvc "github.com/gopimeda/elearning/services/email"
	logsvc "github.com/gopimeda/elearning/services/logger"
)

type fakeRepo struct {
	Repository
	byID map[string]User
}

func (r *fakeRepo) CreateUser(_ context.Context, usr User) (User, error) {
	usr.ID = "usr1"
	r.byID[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) GetUserByID(_ context.Context, id string) (User, error) {
	usr, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (r *fakeRepo) UpdateUser(_ context.Context, usr User, isActive *bool) (User, error) {
	if _, ok := r.byID[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	if isActive != nil {
		usr.IsActive = isActive
	}
	r.byID[usr.ID] = usr
	return usr, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{byID: make(map[string]User)}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return NewService(repo, emailsvc.NewConsoleServiceMock(), logger), repo
}

func seedUser(t *testing.T, svc *Service) User {
	t.Helper()
	usr, err := svc.Create(context.Background(), NewUser{
		Name:            "Bouba Diop",
		Username:        "boubadiop",
		Email:           "boubadiop@test.cd",
		Password:        "LocalHero813!",
		PasswordConfirm: "LocalHero813!",
		Roles:           []string{RoleInstructor},
	})
	require.NoError(t, err)
	return usr
}

func TestUpdate_partialKeepsCredentials(t *testing.T) {
	svc, repo := newTestService(t)
	usr := seedUser(t, svc)

	updated, err := svc.Update(context.Background(), usr.ID, UpdateUser{Name: "Bouba D."})
	require.NoError(t, err)

	assert.Equal(t, "Bouba D.", updated.Name)
	assert.Equal(t, usr.Username, updated.Username)
	assert.Equal(t, usr.Email, updated.Email)
	assert.Equal(t, usr.Roles, updated.Roles)
	assert.True(t, updated.Active())
	assert.Equal(t, usr.CreatedAt, updated.CreatedAt)
	assert.NoError(t, updated.CheckPassword("LocalHero813!"))

	stored := repo.byID[usr.ID]
	assert.True(t, stored.Active())
	assert.NoError(t, stored.CheckPassword("LocalHero813!"))
}

func TestUpdate_passwordChange(t *testing.T) {
	svc, repo := newTestService(t)
	usr := seedUser(t, svc)

	updated, err := svc.Update(context.Background(), usr.ID, UpdateUser{
		Password:        "NewSecret99!",
		PasswordConfirm: "NewSecret99!",
	})
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("NewSecret99!"))
	assert.Error(t, updated.CheckPassword("LocalHero813!"))
	assert.Equal(t, usr.Username, updated.Username)
	assert.Equal(t, usr.Roles, repo.byID[usr.ID].Roles)
}

func TestUpdate_deactivation(t *testing.T) {
	svc, _ := newTestService(t)
	usr := seedUser(t, svc)

	inactive := false
	updated, err := svc.Update(context.Background(), usr.ID, UpdateUser{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active())
	assert.Equal(t, usr.Username, updated.Username)
	assert.NoError(t, updated.CheckPassword("LocalHero813!"))
}

func TestUpdate_unknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "nope", UpdateUser{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}
