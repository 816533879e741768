package main

import (
	"context"

	"github.com/trezcool/shkola/core/user"
)

// addUser registers an admin.
func (cli *commandLine) addUser(email, firstname, lastname, pwd string) error {
	np := user.NewPerson{
		Firstname:       firstname,
		Lastname:        lastname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := np.Validate(cli.validate); err != nil {
		return err
	}
	_, err := cli.usrSvc.RegisterAdmin(context.Background(), np)
	return err
}
