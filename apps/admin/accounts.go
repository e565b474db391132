package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

// addUser updates or creates an admin account.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := account.NowFunc().UTC()

	acc, err := cli.stores.Accounts.GetAccount(ctx, email, account.RoleAdmin)
	created := false
	switch errors.Cause(err) {
	case nil:
	case account.ErrNotFound:
		created = true
		acc = account.Account{Email: email, Role: account.RoleAdmin, CreatedAt: now}
	default:
		return err
	}
	acc.Name = name
	acc.Normalize()
	if err := acc.SetPassword(pwd); err != nil {
		return err
	}
	acc.UpdatedAt = now

	if created {
		_, err = cli.stores.Accounts.CreateAccount(ctx, acc)
	} else {
		_, err = cli.stores.Accounts.UpdateAccount(ctx, acc)
	}
	if err != nil {
		return err
	}
	cli.printf("admin %s saved\n", email)
	return nil
}

func (cli *commandLine) resetPassword(email string, role account.Role, pwd string) error {
	ctx := context.Background()
	acc, err := cli.stores.Accounts.GetAccount(ctx, core.CleanString(email, true /* lower */), role)
	if err != nil {
		return err
	}
	if err := acc.SetPassword(pwd); err != nil {
		return err
	}
	acc.UpdatedAt = account.NowFunc().UTC()
	if _, err := cli.stores.Accounts.UpdateAccount(ctx, acc); err != nil {
		return err
	}
	return nil
}
