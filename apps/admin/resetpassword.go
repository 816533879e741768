package main

import (
	"context"

	"github.com/trezcool/shkola/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acc, err := cli.usrSvc.Resolve(ctx, email)
	if err != nil {
		return err
	}

	// checked against the current names and email
	up := user.UpdatePerson{
		Firstname:       acc.Person.Firstname,
		Lastname:        acc.Person.Lastname,
		Email:           acc.Person.Email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err = up.Validate(cli.validate); err != nil {
		return err
	}
	return cli.usrSvc.ResetPassword(ctx, acc.Person.Email, pwd)
}
