package main

import (
	"context"
	"log"
	"os"

	"github.com/gvpclubconnect/clubconnect/apps/bootstrap"
	"github.com/gvpclubconnect/clubconnect/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	ctx := context.Background()

	// set up stores
	stores, err := bootstrap.OpenStores(ctx, conf, bootstrap.NewLogger("DB", conf))
	errAndDie(err)

	// start CLI
	cli := commandLine{
		conf:   conf,
		stores: stores,
	}
	err = cli.run(os.Args)
	if cErr := stores.Close(ctx); cErr != nil {
		logger.Printf("closing stores: %v\n", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
