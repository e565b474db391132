package emailsvc

import (
	"context"
	"net"
	"net/mail"
	"net/smtp"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

var smtpSendMailFunc = smtp.SendMail // mockable

type smtpService struct {
	addr       string
	auth       smtp.Auth
	from       mail.Address
	subjPrefix string
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService delivers emails through an authenticated SMTP relay (e.g. Gmail).
func NewSMTPService(conf *core.Config) core.EmailService {
	from := conf.DefaultFromEmail
	if conf.SMTP.User != "" {
		from.Address = conf.SMTP.User
	}
	return &smtpService{
		addr:       net.JoinHostPort(conf.SMTP.Host, conf.SMTP.Port),
		auth:       smtp.PlainAuth("", conf.SMTP.User, conf.SMTP.Password, conf.SMTP.Host),
		from:       from,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *smtpService) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	ok, err := prepare(msg)
	if err != nil || !ok {
		return err
	}
	body, err := buildMIME(svc.from, svc.subjPrefix+msg.Subject, msg)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = smtpSendMailFunc(svc.addr, svc.auth, svc.from.Address, recipients(msg), body); err != nil {
		return errors.Wrap(err, "sending email")
	}
	return nil
}
