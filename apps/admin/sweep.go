package main

import (
	"context"

	"github.com/gvpclubconnect/clubconnect/core/club"
)

// sweep removes the join requests older than the approvals TTL.
func (cli *commandLine) sweep() error {
	before := club.NowFunc().UTC().Add(-cli.conf.Approvals.TTL)
	n, err := cli.stores.Tokens.DeleteTokensBefore(context.Background(), club.JoinRequestNamespace, before)
	if err != nil {
		return err
	}
	cli.printf("%d expired join requests removed\n", n)
	return nil
}
