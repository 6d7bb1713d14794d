package main

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/storage/database"
	"github.com/trezcool/tarpaulin/tests"
)

var ctx = context.Background()

func setup(t *testing.T) (*commandLine, *database.Repositories) {
	conf := &core.Config{Database: core.DatabaseConfig{Engine: database.SQLite, Name: ":memory:"}}
	db := testutil.PrepareDB(t)
	validate, _ := core.NewValidator()

	cli := newCommandLine(conf, db, validate)
	cli.out = io.Discard
	return cli, database.NewRepositories(db)
}

// mockPasswords makes the password prompts answer pwds, in order.
func mockPasswords(t *testing.T, pwds ...string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	readPasswordFunc = func(int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name      string
	args      []string // without program name
	passwords []string
	wantErr   error
	wantErrFn func(t *testing.T, err error)
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(t, tt.passwords...)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErrFn != nil:
				tt.wantErrFn(t, err)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)
	runCliTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-username", "lol"}, wantErr: errHelp},
	})
}

func Test_commandLine_initDB(t *testing.T) {
	cli, repos := setup(t)

	// the tables already exist: initdb is idempotent
	runCliTests(t, cli, []cliTest{
		{name: "init", args: []string{"initdb"}},
		{name: "init again", args: []string{"initdb"}},
	})

	_, err := repos.Users.Count(ctx)
	assert.NoError(t, err)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, repos := setup(t)
	testutil.CreateUser(t, repos.Users, "taken@test.cd", "longenough", user.RoleStudent)

	isValidationErr := func(t *testing.T, err error) {
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs), "got %v", err)
	}

	runCliTests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{
			name: "passwords differ", args: []string{"adduser", "-email", "boss@test.cd"},
			passwords: []string{"longenough", "longenougg"}, wantErrFn: isValidationErr,
		},
		{
			name: "invalid email", args: []string{"adduser", "-email", "boss"},
			passwords: []string{"longenough", "longenough"}, wantErrFn: isValidationErr,
		},
		{
			name: "invalid role", args: []string{"adduser", "-email", "boss@test.cd", "-role", "janitor"},
			passwords: []string{"longenough", "longenough"}, wantErrFn: isValidationErr,
		},
		{
			name: "short password", args: []string{"adduser", "-email", "boss@test.cd"},
			passwords: []string{"short", "short"},
			wantErrFn: func(t *testing.T, err error) { assert.True(t, core.IsValidationError(err), "got %v", err) },
		},
		{
			name: "email taken", args: []string{"adduser", "-email", "Taken@test.cd"},
			passwords: []string{"longenough", "longenough"},
			wantErrFn: func(t *testing.T, err error) { assert.EqualError(t, err, user.ErrEmailExists.Error()) },
		},
		{
			name: "admin", args: []string{"adduser", "-email", "boss@test.cd", "-name", "The Boss"},
			passwords: []string{"longenough", "longenough"},
		},
		{
			name: "instructor", args: []string{"adduser", "-email", "prof@test.cd", "-role", "instructor"},
			passwords: []string{"longenough", "longenough"},
		},
	})

	boss, err := repos.Users.FindBy(ctx, "email", "boss@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, boss.Role)
	assert.Equal(t, "The Boss", boss.Name.String)
	assert.NoError(t, boss.CheckPassword("longenough"))

	prof, err := repos.Users.FindBy(ctx, "email", "prof@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleInstructor, prof.Role)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repos := setup(t)
	usr := testutil.CreateUser(t, repos.Users, "user@test.cd", "longenough", user.RoleStudent)

	runCliTests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "user@test.cd"}, wantErr: errHelp},
		{
			name: "user not found", args: []string{"resetpassword", "-email", "nobody@test.cd"},
			passwords: []string{"brandnewpwd"}, wantErr: core.ErrNotFound,
		},
		{
			name: "too short", args: []string{"resetpassword", "-email", "user@test.cd"},
			passwords: []string{"short"},
			wantErrFn: func(t *testing.T, err error) { assert.True(t, core.IsValidationError(err), "got %v", err) },
		},
		{name: "reset", args: []string{"resetpassword", "-email", "USER@test.cd"}, passwords: []string{"brandnewpwd"}},
	})

	refreshed, err := repos.Users.FindBy(ctx, "id", usr.ID)
	require.NoError(t, err)
	assert.Error(t, refreshed.CheckPassword("longenough"))
	assert.NoError(t, refreshed.CheckPassword("brandnewpwd"))
}
