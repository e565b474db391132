package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvpclubconnect/clubconnect/apps/bootstrap"
	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	return &commandLine{
		conf: env.Conf,
		stores: &bootstrap.Stores{
			Accounts: env.Accounts,
			Clubs:    env.Clubs,
			Events:   env.Events,
			Tokens:   env.Tokens,
		},
		out: new(bytes.Buffer),
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	// without postgres
	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, errNoSQL, err)

	cli.stores.SQL = sqlx.NewDb(new(sql.DB), "postgres")
	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	existing := testutil.CreateAccount(t, env.Accounts, "Old Admin", "root@test.cd", account.RoleAdmin)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol", "x"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-name", "Admin"}, extra: extra{pwd: "pwd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-name", "Admin", "-email", " Admin@Test.cd "}, extra: extra{pwd: "n3w$Admin"}},
		{name: "update", args: []string{"adduser", "-name", "Root", "-email", existing.Email}, extra: extra{pwd: "n3w$Root"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, cli.run(args))
		})
	}

	created, err := env.Accounts.GetAccount(context.Background(), "admin@test.cd", account.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Admin", created.Name)
	assert.NoError(t, created.CheckPassword("n3w$Admin"))

	updated, err := env.Accounts.GetAccount(context.Background(), existing.Email, account.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, "Root", updated.Name)
	assert.NoError(t, updated.CheckPassword("n3w$Root"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	member := testutil.CreateAccount(t, env.Accounts, "Member", "member@test.cd", account.RoleMember)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", member.Email, "-role", "member"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"resetpassword", "-email", member.Email, "-role", "lol"}, extra: extra{pwd: "lol"}, wantErr: errHelp},
		{
			name: "account not found", args: []string{"resetpassword", "-email", member.Email},
			extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound,
		},
		{name: "reset", args: []string{"resetpassword", "-email", member.Email, "-role", "member"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)

			refreshed, err := env.Accounts.GetAccount(context.Background(), member.Email, account.RoleMember)
			require.NoError(t, err)
			assert.NotEqual(t, member.PasswordHash, refreshed.PasswordHash)
			assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
		})
	}
}

func Test_commandLine_sweep(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	put := func(key string, createdAt time.Time) {
		err := env.Tokens.PutToken(ctx, core.Token{Namespace: club.JoinRequestNamespace, Key: key, Value: []byte("{}"), CreatedAt: createdAt})
		require.NoError(t, err)
	}
	put("fresh", now)
	put("stale", now.Add(-env.Conf.Approvals.TTL-time.Hour))

	require.NoError(t, cli.run([]string{"admin", "sweep"}))

	_, err := env.Tokens.GetToken(ctx, club.JoinRequestNamespace, "fresh")
	assert.NoError(t, err)
	_, err = env.Tokens.GetToken(ctx, club.JoinRequestNamespace, "stale")
	assert.Equal(t, core.ErrTokenNotFound, err)
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1 expired join requests removed")
}
