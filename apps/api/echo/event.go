package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core/event"
)

type eventApi struct {
	svc      *event.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt, manager echo.MiddlewareFunc, svc *event.Service, validate *validator.Validate) {
	api := eventApi{svc: svc, validate: validate}

	eg := g.Group("/events")
	eg.GET("", api.list)
	eg.GET("/:id", api.retrieve)
	eg.GET("/club/:name", api.listByClub)
	eg.GET("/clubtype/:type", api.listByType)
	eg.GET("/upcoming", api.listUpcoming)
	eg.GET("/upcoming/:type", api.listUpcoming)
	eg.GET("/past", api.listPast)
	eg.GET("/past/:type", api.listPast)
	eg.POST("/register/:id", api.register)
	eg.POST("/remove-registration/:id", api.removeRegistration)

	mg := eg.Group("", jwt, manager)
	mg.POST("/add", api.create)
	mg.PATCH("/update/:id", api.updateDate)
	mg.DELETE("/:id", api.destroy)
	mg.POST("/mark-participation/:id", api.markParticipation)
	mg.GET("/registered-profiles/:id", api.registeredProfiles)
	mg.POST("/upload-document/:id", api.uploadDocument)
	mg.POST("/upload-image/:id", api.uploadImage)
}

type (
	eventResponse struct {
		Message string      `json:"message"`
		Event   event.Event `json:"event"`
	}

	participationResponse struct {
		Message   string      `json:"message"`
		Success   bool        `json:"success"`
		UserFound string      `json:"userFound"`
		Event     event.Event `json:"event"`
	}
)

// Handlers

func (api *eventApi) list(ctx echo.Context) error {
	events, err := api.svc.ListAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) listByClub(ctx echo.Context) error {
	events, err := api.svc.ListByClub(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "listing club events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) listByType(ctx echo.Context) error {
	events, err := api.svc.ListByType(ctx.Request().Context(), ctx.Param("type"))
	if err != nil {
		return errors.Wrap(err, "listing events by club type")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) listUpcoming(ctx echo.Context) error {
	events, err := api.svc.ListUpcoming(ctx.Request().Context(), ctx.Param("type"))
	if err != nil {
		return errors.Wrap(err, "listing upcoming events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) listPast(ctx echo.Context) error {
	events, err := api.svc.ListPast(ctx.Request().Context(), ctx.Param("type"))
	if err != nil {
		return errors.Wrap(err, "listing past events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) register(ctx echo.Context) error {
	var r event.Registration
	if err := ctx.Bind(&r); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := r.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), r); err != nil {
		return errors.Wrap(err, "registering to event")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Registration successful"})
}

func (api *eventApi) removeRegistration(ctx echo.Context) error {
	var r event.Registration
	if err := ctx.Bind(&r); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := r.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RemoveRegistration(ctx.Request().Context(), ctx.Param("id"), r); err != nil {
		return errors.Wrap(err, "removing event registration")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Registration removed"})
}

func (api *eventApi) create(ctx echo.Context) error {
	var ne event.NewEvent
	if err := ctx.Bind(&ne); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := ne.Validate(api.validate); err != nil {
		return err
	}
	if err := checkManager(ctx, ne.Club); err != nil {
		return err
	}

	image, closeImage, err := readUpload(ctx, "image")
	defer closeImage()
	if err != nil {
		return err
	}
	qr, closeQR, err := readUpload(ctx, "paymentQR")
	defer closeQR()
	if err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), ne, event.Uploads{Image: image, PaymentQR: qr})
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) updateDate(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}
	var ud event.UpdateDate
	if err := ctx.Bind(&ud); err != nil {
		return errors.Wrap(err, "binding to UpdateDate")
	}
	if err := ud.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.UpdateDate(ctx.Request().Context(), ctx.Param("id"), ud)
	if err != nil {
		return errors.Wrap(err, "updating event date")
	}
	return ctx.JSON(http.StatusOK, eventResponse{Message: "Event updated", Event: e})
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}

	if _, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Event deleted"})
}

func (api *eventApi) markParticipation(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}
	var pu event.ParticipationUpdate
	if err := ctx.Bind(&pu); err != nil {
		return errors.Wrap(err, "binding to ParticipationUpdate")
	}
	if err := pu.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.SetParticipation(ctx.Request().Context(), ctx.Param("id"), pu)
	if err != nil {
		return errors.Wrap(err, "setting participation")
	}
	msg := "Participation marked"
	if !*pu.Participated {
		msg = "Participation removed"
	}
	return ctx.JSON(http.StatusOK, participationResponse{
		Message:   msg,
		Success:   true,
		UserFound: res.UserFound,
		Event:     res.Event,
	})
}

func (api *eventApi) registeredProfiles(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}

	profiles, err := api.svc.RegisteredProfiles(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing registered profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}

// uploadDocument accepts either a multipart "document" file or a JSON {documentUrl}.
func (api *eventApi) uploadDocument(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}
	id := ctx.Param("id")

	var e event.Event
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		up, closeFn, err := requireUpload(ctx, "document")
		defer closeFn()
		if err != nil {
			return err
		}
		if e, err = api.svc.UploadDocument(ctx.Request().Context(), id, up); err != nil {
			return errors.Wrap(err, "uploading event document")
		}
	} else {
		var ad event.AttachDocument
		if err := ctx.Bind(&ad); err != nil {
			return errors.Wrap(err, "binding to AttachDocument")
		}
		if err := ad.Validate(api.validate); err != nil {
			return err
		}
		var err error
		if e, err = api.svc.AttachDocument(ctx.Request().Context(), id, ad); err != nil {
			return errors.Wrap(err, "attaching event document")
		}
	}
	return ctx.JSON(http.StatusOK, eventResponse{Message: "Document uploaded", Event: e})
}

func (api *eventApi) uploadImage(ctx echo.Context) error {
	if _, err := api.managedEvent(ctx); err != nil {
		return err
	}
	up, closeFn, err := requireUpload(ctx, "image")
	defer closeFn()
	if err != nil {
		return err
	}

	e, err := api.svc.UploadImage(ctx.Request().Context(), ctx.Param("id"), up)
	if err != nil {
		return errors.Wrap(err, "uploading event image")
	}
	return ctx.JSON(http.StatusOK, eventResponse{Message: "Image uploaded", Event: e})
}

// managedEvent loads the event of the "id" path param and checks the caller manages its club.
func (api *eventApi) managedEvent(ctx echo.Context) (event.Event, error) {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "getting event")
	}
	if err := checkManager(ctx, e.Club); err != nil {
		return event.Event{}, err
	}
	return e, nil
}
