package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
)

type accountApi struct {
	svc      *account.Service
	clubSvc  *club.Service
	logger   core.Logger
	conf     *core.Config
	validate *validator.Validate
}

func registerAccountAPI(
	g *echo.Group,
	svc *account.Service,
	clubSvc *club.Service,
	logger core.Logger,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := accountApi{
		svc:      svc,
		clubSvc:  clubSvc,
		logger:   logger,
		conf:     conf,
		validate: validate,
	}

	g.POST("/login", api.login)
	g.POST("/login/clubs", api.loginClubs)

	g.POST("/signup/send-otp", api.sendSignupOTP)
	g.POST("/signup/verify", api.signup)

	g.POST("/forgot-password/send-otp", api.sendPasswordResetOTP)
	g.POST("/forgot-password/reset", api.resetPassword)
}

type (
	loginResponse struct {
		Message string          `json:"message"`
		Token   string          `json:"token"`
		User    account.Account `json:"user"`
	}

	signupResponse struct {
		Message string          `json:"message"`
		User    account.Account `json:"user"`
	}

	clubsResponse struct {
		Clubs []string `json:"clubs"`
	}
)

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data account.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	token, err := GenerateToken(api.conf, acc)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: token, User: acc})
}

func (api *accountApi) loginClubs(ctx echo.Context) error {
	var data emailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to emailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	clubs, err := api.svc.ClubsOf(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "getting faculty clubs")
	}
	return ctx.JSON(http.StatusOK, clubsResponse{Clubs: clubs})
}

func (api *accountApi) sendSignupOTP(ctx echo.Context) error {
	var data emailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to emailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SendSignupOTP(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "sending signup OTP")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "OTP sent to " + data.Email})
}

func (api *accountApi) signup(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	acc, err := api.svc.Signup(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}

	// faculty follow clubs once an admin approves
	if acc.Role == account.RoleFaculty {
		for _, c := range data.Clubs {
			jr := club.JoinRequest{Email: acc.Email, Role: acc.Role, Club: c}
			if _, err := api.clubSvc.RequestJoin(reqCtx, jr); err != nil {
				api.logger.Warn(fmt.Sprintf("join request of %s for %q: %v", acc.Email, c, err), err)
			}
		}
	}
	return ctx.JSON(http.StatusCreated, signupResponse{Message: "Signup successful", User: acc})
}

func (api *accountApi) sendPasswordResetOTP(ctx echo.Context) error {
	var data account.AccountRef
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AccountRef")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
	}
	return ctx.JSON(http.StatusOK, messageResponse{
		Message: "If the email address supplied is associated with an account, an OTP will arrive in your inbox shortly.",
	})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Password has been reset with the new password."})
}
