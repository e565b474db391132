package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
)

type clubSelectionApi struct {
	svc      *club.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerClubSelectionAPI(g *echo.Group, svc *club.Service, conf *core.Config, validate *validator.Validate) {
	api := clubSelectionApi{svc: svc, conf: conf, validate: validate}

	sg := g.Group("/club-selection")
	sg.POST("/select-clubs", api.selectClub)
	sg.GET("/approve/:token/:approved", api.resolve)
	sg.GET("/selected-clubs/:email/:role", api.selectedClubs)
}

type (
	selectClubResponse struct {
		Message        string `json:"message"`
		AdminsNotified int    `json:"adminsNotified"`
	}

	selectedClubsResponse struct {
		SelectedClubs []string `json:"selectedClubs"`
		PendingClubs  []string `json:"pendingClubs"`
	}

	joinResolvedPage struct {
		AppName  string
		Error    string
		Approved bool
		Email    string
		Club     string
	}
)

// Handlers

func (api *clubSelectionApi) selectClub(ctx echo.Context) error {
	var jr club.JoinRequest
	if err := ctx.Bind(&jr); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := jr.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.RequestJoin(ctx.Request().Context(), jr)
	if err != nil {
		return errors.Wrap(err, "requesting club join")
	}
	msg := "Approval request sent to admins"
	if n == 0 {
		msg = "Request recorded; no admin available to approve it"
	}
	return ctx.JSON(http.StatusOK, selectClubResponse{Message: msg, AdminsNotified: n})
}

// resolve is reached from the links mailed to admins, so it answers with an HTML page.
func (api *clubSelectionApi) resolve(ctx echo.Context) error {
	page := joinResolvedPage{AppName: api.conf.AppName}

	approved, err := strconv.ParseBool(ctx.Param("approved"))
	if err != nil {
		page.Error = "invalid approval link"
		return ctx.Render(http.StatusNotFound, "join_resolved", page)
	}

	res, err := api.svc.ResolveJoin(ctx.Request().Context(), ctx.Param("token"), approved)
	if err != nil {
		if _, ok := errors.Cause(err).(*core.NotFoundError); !ok {
			return errors.Wrap(err, "resolving club join")
		}
		page.Error = errors.Cause(err).Error()
		return ctx.Render(http.StatusNotFound, "join_resolved", page)
	}

	page.Approved = res.Approved
	page.Email = res.Email
	page.Club = res.Club
	return ctx.Render(http.StatusOK, "join_resolved", page)
}

func (api *clubSelectionApi) selectedClubs(ctx echo.Context) error {
	ref := account.AccountRef{Email: ctx.Param("email"), Role: account.Role(ctx.Param("role"))}
	if err := ref.Validate(api.validate); err != nil {
		return err
	}

	selected, pending, err := api.svc.SelectedClubs(ctx.Request().Context(), ref.Email, ref.Role)
	if err != nil {
		return errors.Wrap(err, "getting selected clubs")
	}
	return ctx.JSON(http.StatusOK, selectedClubsResponse{SelectedClubs: selected, PendingClubs: pending})
}
