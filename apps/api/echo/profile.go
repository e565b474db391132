package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core/account"
)

type profileApi struct {
	svc      *account.Service
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, svc *account.Service, validate *validator.Validate) {
	api := profileApi{svc: svc, validate: validate}

	pg := g.Group("/profile")
	pg.GET("", api.retrieve)
	pg.POST("/update-profile", api.update)
	pg.POST("/upload-image", api.uploadImage)
	pg.POST("/request-delete-otp", api.requestDeletionOTP)
	pg.POST("/delete-account", api.destroy)
}

type profileResponse struct {
	Message string          `json:"message"`
	Profile account.Profile `json:"profile"`
}

// Handlers

func (api *profileApi) retrieve(ctx echo.Context) error {
	var ref account.AccountRef
	if err := ctx.Bind(&ref); err != nil {
		return errors.Wrap(err, "binding to AccountRef")
	}
	if err := ref.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Get(ctx.Request().Context(), ref.Email, ref.Role)
	if err != nil {
		return errors.Wrap(err, "getting account")
	}
	return ctx.JSON(http.StatusOK, acc.Profile())
}

func (api *profileApi) update(ctx echo.Context) error {
	var data account.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.UpdateProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, profileResponse{Message: "Profile updated", Profile: acc.Profile()})
}

func (api *profileApi) uploadImage(ctx echo.Context) error {
	var ref account.AccountRef
	if err := ctx.Bind(&ref); err != nil {
		return errors.Wrap(err, "binding to AccountRef")
	}
	if err := ref.Validate(api.validate); err != nil {
		return err
	}
	up, closeFn, err := requireUpload(ctx, "file")
	defer closeFn()
	if err != nil {
		return err
	}

	acc, err := api.svc.UploadProfileImage(ctx.Request().Context(), ref, up)
	if err != nil {
		return errors.Wrap(err, "uploading profile image")
	}
	return ctx.JSON(http.StatusOK, profileResponse{Message: "Profile image updated", Profile: acc.Profile()})
}

func (api *profileApi) requestDeletionOTP(ctx echo.Context) error {
	var ref account.AccountRef
	if err := ctx.Bind(&ref); err != nil {
		return errors.Wrap(err, "binding to AccountRef")
	}
	if err := ref.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestDeletionOTP(ctx.Request().Context(), ref); err != nil {
		return errors.Wrap(err, "requesting deletion OTP")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "OTP sent to " + ref.Email})
}

func (api *profileApi) destroy(ctx echo.Context) error {
	var data account.ConfirmWithOTP
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmWithOTP")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.DeleteWithOTP(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Account deleted"})
}
