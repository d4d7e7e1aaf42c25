package main

import (
	"context"

	"github.com/trezcool/asistencia/core/user"
)

// addUser creates a user of any role, admins included.
func (cli *commandLine) addUser(ctx context.Context, name, email string, role user.Role, pwd string) (user.User, error) {
	return cli.usrSvc.Create(ctx, user.NewUser{
		Name:            name,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
}
