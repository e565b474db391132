package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/club"
)

type clubApi struct {
	svc      *club.Service
	validate *validator.Validate
}

func registerClubAPI(g *echo.Group, jwt, manager echo.MiddlewareFunc, svc *club.Service, validate *validator.Validate) {
	api := clubApi{svc: svc, validate: validate}

	cg := g.Group("/clubs")
	cg.GET("", api.list)
	cg.GET("/:name", api.retrieve)
	cg.POST("/init", api.create, jwt, adminMiddleware)
	cg.POST("/update", api.update, jwt, manager)
	cg.POST("/upload-logo", api.uploadLogo, jwt, manager)
}

type clubResponse struct {
	Message string    `json:"message"`
	Club    club.Club `json:"club"`
}

// Handlers

func (api *clubApi) list(ctx echo.Context) error {
	clubs, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing clubs")
	}
	return ctx.JSON(http.StatusOK, clubs)
}

func (api *clubApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "getting club")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) create(ctx echo.Context) error {
	var nc club.NewClub
	if err := ctx.Bind(&nc); err != nil {
		return errors.Wrap(err, "binding to NewClub")
	}
	if err := nc.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Init(ctx.Request().Context(), nc)
	if err != nil {
		return errors.Wrap(err, "creating club")
	}
	return ctx.JSON(http.StatusCreated, clubResponse{Message: "Club created", Club: c})
}

func (api *clubApi) update(ctx echo.Context) error {
	var uc club.UpdateClub
	if err := ctx.Bind(&uc); err != nil {
		return errors.Wrap(err, "binding to UpdateClub")
	}
	if err := uc.Validate(api.validate); err != nil {
		return err
	}
	if err := checkManager(ctx, uc.Name); err != nil {
		return err
	}

	c, created, err := api.svc.Upsert(ctx.Request().Context(), uc)
	if err != nil {
		return errors.Wrap(err, "upserting club")
	}
	if created {
		return ctx.JSON(http.StatusCreated, clubResponse{Message: "Club created", Club: c})
	}
	return ctx.JSON(http.StatusOK, clubResponse{Message: "Club updated", Club: c})
}

func (api *clubApi) uploadLogo(ctx echo.Context) error {
	name := core.CleanString(ctx.FormValue("clubName"))
	if name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "clubName", Error: "clubName is a required field"})
	}
	if err := checkManager(ctx, name); err != nil {
		return err
	}
	up, closeFn, err := requireUpload(ctx, "logo")
	defer closeFn()
	if err != nil {
		return err
	}

	c, err := api.svc.SetLogo(ctx.Request().Context(), name, up)
	if err != nil {
		return errors.Wrap(err, "setting club logo")
	}
	return ctx.JSON(http.StatusOK, clubResponse{Message: "Logo uploaded", Club: c})
}
