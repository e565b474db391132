package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/gvpclubconnect/clubconnect/apps/bootstrap"
	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	stores *bootstrap.Stores
	out    io.Writer // defaults to stdout
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	if cli.out != nil {
		_, _ = fmt.Fprintf(cli.out, format, args...)
		return
	}
	fmt.Printf(format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  adduser -name NAME -email EMAIL - create or update an admin account\n")
	cli.printf("  resetpassword -email EMAIL -role ROLE - reset an account's password\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command on the tokens database\n")
	cli.printf("  sweep - remove expired club join requests\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The admin's name.")
	addUserEmail := addUserCmd.String("email", "", "The admin's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")
	resetPasswordRole := resetPasswordCmd.String("role", string(account.RoleAdmin), "The account's role.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" || !account.Role(*resetPasswordRole).IsValid() {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, account.Role(*resetPasswordRole), pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printf("Usage:\n  migrate up|up-by-one|up-to|down|down-to|redo|reset|status|version|fix [ARGS]\n")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "sweep":
		return cli.sweep()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
