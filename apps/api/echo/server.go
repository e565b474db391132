package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		AccountSvc *account.Service
		ClubSvc    *club.Service
		EventSvc   *event.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if conf.Server.MaxUploadSize > 0 {
		// leave room for the other multipart fields
		s.app.Use(middleware.BodyLimit(bodyLimit(conf.Server.MaxUploadSize * 3)))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.Renderer = newPageRenderer()

	s.app.GET("/", s.home)
	if conf.Files.Backend == "" || conf.Files.Backend == "local" {
		s.app.Static("/uploads", conf.Files.Dir)
	}

	api := s.app.Group("/api")
	jwt := jwtMiddleware(conf)
	manager := managerMiddleware(s.deps.AccountSvc)

	registerAccountAPI(api, s.deps.AccountSvc, s.deps.ClubSvc, s.deps.Logger, s.deps.Conf, s.deps.Validate)
	registerProfileAPI(api, s.deps.AccountSvc, s.deps.Validate)
	registerAdminAPI(api, jwt, s.deps.AccountSvc, s.deps.Validate)
	registerClubAPI(api, jwt, manager, s.deps.ClubSvc, s.deps.Validate)
	registerClubSelectionAPI(api, s.deps.ClubSvc, s.deps.Conf, s.deps.Validate)
	registerEventAPI(api, jwt, manager, s.deps.EventSvc, s.deps.Validate)
}

// Start blocks until the server stops. Unexpected failures are sent to Errors().
func (s *Server) Start() {
	srv := &http.Server{
		Addr:         s.deps.Conf.Server.Address,
		ReadTimeout:  s.deps.Conf.Server.ReadTimeout,
		WriteTimeout: s.deps.Conf.Server.WriteTimeout,
	}
	if err := s.app.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
