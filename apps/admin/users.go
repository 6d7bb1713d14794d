package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/storage/database"
)

// initDB creates the database if it does not exist yet, then its tables.
func (cli *commandLine) initDB() error {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, cli.conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	if err := database.Ping(ctx, cli.db); err != nil {
		return err
	}
	if err := database.EnsureSchema(ctx, cli.db); err != nil {
		return errors.Wrap(err, "creating tables")
	}
	_, _ = fmt.Fprintln(cli.out, "Database ready.")
	return nil
}

func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := cli.validate.Struct(nu); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu.Payload())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "User %d (%s, %s) created.\n", usr.ID, usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Password of %s updated.\n", usr.Email)
	return nil
}
