// Package emailsvc delivers rendered core.EmailMessage values.
package emailsvc

import (
	"log"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

// NewService returns the email service selected by conf.Mail.Backend.
func NewService(std *log.Logger, conf *core.Config) (core.EmailService, error) {
	switch conf.Mail.Backend {
	case "", "console":
		return NewConsoleService(std, conf), nil
	case "sendgrid":
		return NewSendgridService(conf), nil
	case "smtp":
		return NewSMTPService(conf), nil
	}
	return nil, errors.Errorf("unknown mail backend %q", conf.Mail.Backend)
}
