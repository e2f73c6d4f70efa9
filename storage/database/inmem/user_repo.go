package inmem

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/user"
)

type UserRepository struct {
	users *table[user.User]
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: newTable[user.User]()}
}

func (r *UserRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := func(usr user.User) bool {
		for _, ex := range excludedUsers {
			if ex.ID == usr.ID {
				return true
			}
		}
		return false
	}
	for _, usr := range r.users.all() {
		if excluded(usr) {
			continue
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (r *UserRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	r.users.insert(usr.ID, usr)
	return usr, nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	usr, ok := r.users.get(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (r *UserRepository) findOne(match func(user.User) bool) (user.User, error) {
	for _, usr := range r.users.all() {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	return r.findOne(func(usr user.User) bool { return strings.EqualFold(usr.Username, username) })
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return r.findOne(func(usr user.User) bool { return strings.EqualFold(usr.Email, email) })
}

func (r *UserRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	return r.findOne(func(usr user.User) bool {
		return strings.EqualFold(usr.Username, username) || strings.EqualFold(usr.Email, username)
	})
}

func (r *UserRepository) QueryUsers(_ context.Context, qf *user.QueryFilter, params listing.Params) (listing.Page[user.User], error) {
	matched := make([]user.User, 0)
	for _, usr := range r.users.all() {
		if matchUser(usr, qf) {
			matched = append(matched, usr)
		}
	}
	if qf != nil {
		params.Search = qf.Search
	}
	return user.Schema().ApplyPage(matched, params), nil
}

func matchUser(usr user.User, qf *user.QueryFilter) bool {
	if qf == nil || qf.IsEmpty() {
		return true
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, want := range qf.Roles {
			for _, role := range usr.Roles {
				if role == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if qf.IsActive != nil && usr.Active() != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

func (r *UserRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	if isActive != nil {
		usr.IsActive = isActive
	}
	if !r.users.update(usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (r *UserRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	r.users.delete(ids...)
	return nil
}
