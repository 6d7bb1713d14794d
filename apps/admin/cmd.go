package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB
	usrSvc   *user.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  initdb - create the database if missing and its tables")
	_, _ = fmt.Fprintln(cli.out, "  adduser -email EMAIL [-role ROLE] [-name NAME] - create a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
}

func (cli *commandLine) readPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "One of admin, instructor or student.")
	addUserName := addUserCmd.String("name", "", "The user's name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "initdb":
		return cli.initDB()

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := cli.readPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.addUser(user.NewUser{
			Name:            *addUserName,
			Email:           *addUserEmail,
			Role:            *addUserRole,
			Password:        pwd,
			PasswordConfirm: confirm,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func newCommandLine(conf *core.Config, db *sqlx.DB, validate *validator.Validate) *commandLine {
	return &commandLine{
		conf:     conf,
		db:       db,
		usrSvc:   user.NewService(database.NewRepositories(db).Users),
		validate: validate,
		out:      os.Stdout,
	}
}
