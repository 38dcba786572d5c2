package emailsvc

import (
	"bytes"
	"context"
	"io"
	"net/mail"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/aurorarobotics/aurora/core"
)

// SMTPSender delivers messages through an SMTP relay. It is the fallback provider.
type SMTPSender struct {
	dialer     *gomail.Dialer
	from       mail.Address
	subjPrefix string
}

var _ core.EmailSender = (*SMTPSender)(nil)

func NewSMTPSender(conf *core.Config) *SMTPSender {
	smtp := conf.Email.SMTP
	return &SMTPSender{
		dialer:     gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Password),
		from:       conf.Email.DefaultFrom,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *SMTPSender) Name() string { return "smtp" }

func addressList(m *gomail.Message, addrs []mail.Address) []string {
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, m.FormatAddress(a.Address, a.Name))
	}
	return list
}

func (svc *SMTPSender) message(msg *core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", svc.from.Address, svc.from.Name)
	m.SetHeader("To", addressList(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", addressList(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", addressList(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}

	for _, at := range msg.Attachments {
		content := at.Content
		m.Attach(at.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {at.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
		)
	}
	return m
}

// Send dials the relay for every message. gomail has no context support, so ctx is
// only checked before dialing.
func (svc *SMTPSender) Send(ctx context.Context, msg *core.EmailMessage) error {
	if svc.dialer.Host == "" {
		return errors.New("smtp: missing host")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(svc.dialer.DialAndSend(svc.message(msg)), "smtp send")
}
