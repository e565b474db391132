package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

type (
	messageResponse struct {
		Message string `json:"message"`
	}

	emailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (er *emailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func bodyLimit(n int64) string {
	return fmt.Sprintf("%dK", (n+1023)/1024)
}

// readUpload opens the multipart file sent under field. It returns (nil, nil) when no file was sent.
func readUpload(ctx echo.Context, field string) (*core.Upload, func(), error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid file upload"})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "opening upload")
	}
	closeFn := func() { _ = f.Close() }

	up, err := core.NewUpload(fh.Filename, fh.Size, f)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return up, closeFn, nil
}

// requireUpload is readUpload for mandatory files.
func requireUpload(ctx echo.Context, field string) (*core.Upload, func(), error) {
	up, closeFn, err := readUpload(ctx, field)
	if err != nil {
		return nil, closeFn, err
	}
	if up == nil {
		return nil, closeFn, core.NewValidationError(nil, core.FieldError{Field: field, Error: "no file uploaded"})
	}
	return up, closeFn, nil
}
