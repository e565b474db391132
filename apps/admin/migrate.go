package main

import (
	"context"
	"errors"

	"github.com/pressly/goose/v3"

	appfs "github.com/gvpclubconnect/clubconnect/fs"
)

var (
	gooseRunFunc = goose.RunContext // mockable

	errNoSQL = errors.New("migrate requires the postgres tokens engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.stores.SQL == nil {
		return errNoSQL
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(context.Background(), args[0], cli.stores.SQL.DB, "migrations", args[1:]...)
}
