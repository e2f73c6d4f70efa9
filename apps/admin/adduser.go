package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err == nil {
		_, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
			Name:            name,
			Roles:           roles,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
		return err
	}
	if errors.Cause(err) != user.ErrNotFound {
		return err
	}

	_, err = cli.usrSvc.Create(ctx, user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	})
	return err
}
