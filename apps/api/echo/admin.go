package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
)

type adminApi struct {
	svc      *account.Service
	validate *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *account.Service, validate *validator.Validate) {
	api := adminApi{svc: svc, validate: validate}

	ag := g.Group("", jwt, adminMiddleware)
	ag.GET("/all-members", api.listRole(account.RoleMember))
	ag.GET("/all-leads", api.listRole(account.RoleLead))
	ag.GET("/all-faculty", api.listRole(account.RoleFaculty))
	ag.DELETE("/delete-user", api.destroy)
	ag.PUT("/promote-member", api.promote)
	ag.PUT("/depromote-lead", api.demote)
	ag.PUT("/approve-lead-club", api.approveLeadClub)
	ag.PUT("/remove-club", api.removeClub)
}

type (
	accountResponse struct {
		Message string          `json:"message"`
		User    account.Account `json:"user"`
	}

	removeClubRequest struct {
		Email string `json:"email" validate:"required,email"`
		Club  string `json:"clubName" validate:"required,notblank"`
	}
)

func (rc *removeClubRequest) Validate(validate *validator.Validate) error {
	rc.Email = core.CleanString(rc.Email, true /* lower */)
	rc.Club = core.CleanString(rc.Club)
	return validate.Struct(rc)
}

// Handlers

func (api *adminApi) listRole(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		accounts, err := api.svc.List(ctx.Request().Context(), role)
		if err != nil {
			return errors.Wrapf(err, "listing %s accounts", role)
		}
		return ctx.JSON(http.StatusOK, accounts)
	}
}

func (api *adminApi) destroy(ctx echo.Context) error {
	var ref account.AccountRef
	if err := ctx.Bind(&ref); err != nil {
		return errors.Wrap(err, "binding to AccountRef")
	}
	if err := ref.Validate(api.validate); err != nil {
		return err
	}

	// admins cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if ref.Email == claims.Email && ref.Role == claims.Role {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), ref.Email, ref.Role); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

func (api *adminApi) promote(ctx echo.Context) error {
	var data account.ClubAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClubAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Promote(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "promoting member")
	}
	return ctx.JSON(http.StatusOK, accountResponse{Message: "Member promoted to lead", User: acc})
}

func (api *adminApi) demote(ctx echo.Context) error {
	var data emailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to emailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Demote(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "demoting lead")
	}
	return ctx.JSON(http.StatusOK, accountResponse{Message: "Lead demoted to member", User: acc})
}

func (api *adminApi) approveLeadClub(ctx echo.Context) error {
	var data account.ClubAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClubAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.ApproveLeadClub(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "approving lead club")
	}
	return ctx.JSON(http.StatusOK, accountResponse{Message: "Lead club approved", User: acc})
}

func (api *adminApi) removeClub(ctx echo.Context) error {
	var data removeClubRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to removeClubRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ca := account.ClubAssignment{Email: data.Email, Club: data.Club}
	if err := api.svc.RemoveClub(ctx.Request().Context(), ca); err != nil {
		return errors.Wrap(err, "removing club")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Club removed"})
}
