package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/gvpclubconnect/clubconnect/apps/api/echo"
	"github.com/gvpclubconnect/clubconnect/apps/bootstrap"
	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
	"github.com/gvpclubconnect/clubconnect/core/otp"
	appfs "github.com/gvpclubconnect/clubconnect/fs"
	emailsvc "github.com/gvpclubconnect/clubconnect/services/email"
	filesvc "github.com/gvpclubconnect/clubconnect/services/files"
	"github.com/gvpclubconnect/clubconnect/services/notify"
	qrsvc "github.com/gvpclubconnect/clubconnect/services/qrcode"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := bootstrap.NewLogger("API", conf)
	dbLogger := bootstrap.NewLogger("DB", conf)

	// set up stores
	stores, err := bootstrap.OpenStores(ctx, conf, dbLogger)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up stores: %v", err), err)
	}
	defer func() {
		if err = stores.Close(context.Background()); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	mailSvc, err := emailsvc.NewService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up mail: %v", err), err)
	}
	files, err := filesvc.NewStorage(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up files: %v", err), err)
	}

	dispatcher := notify.NewDispatcher(mailSvc, logger, conf.Notify)
	dispatcher.Start()

	otps := otp.NewManager(stores.Tokens, conf.OTP)
	clubSvc := club.NewService(stores.Clubs, stores.Accounts, stores.Tokens, dispatcher, files, logger, conf)
	accSvc := account.NewService(stores.Accounts, clubSvc, otps, dispatcher, files, logger, conf)
	eventSvc := event.NewService(stores.Events, accSvc, files, qrsvc.NewGenerator(), dispatcher, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := bootstrap.NewTranslator()
	validate := bootstrap.NewValidator(translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// sweep expired join requests
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go clubSvc.RunSweeper(sweepCtx)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AccountSvc: accSvc,
			ClubSvc:    clubSvc,
			EventSvc:   eventSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	// asking listener to shut down and shed load
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}

	// flush pending notifications
	stopSweeper()
	if err = dispatcher.Stop(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("could not drain notifications: %v", err), err)
	}
}
