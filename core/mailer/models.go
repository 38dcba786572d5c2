package mailer

import (
	htmltmpl "html/template"
	"net/mail"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aurorarobotics/aurora/core"
)

// Log statuses
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Template is an email template editable from the admin panel.
// Subject and TextBody use text/template, HTMLBody uses html/template.
type Template struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Subject   string    `json:"subject"`
	HTMLBody  string    `json:"html_body"`
	TextBody  string    `json:"text_body"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Log is one delivery attempt to one recipient.
type Log struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	TemplateKey string    `json:"template_key"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	Error       string    `json:"error"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type LogFilter struct {
	Status    string    `query:"status"`
	Recipient string    `query:"recipient"`
	Since     time.Time `query:"since"`
}

func (lf *LogFilter) Clean() {
	lf.Status = core.CleanString(lf.Status, true /* lower */)
	lf.Recipient = core.CleanString(lf.Recipient, true /* lower */)
}

type SaveTemplate struct {
	Subject  string `json:"subject" validate:"notblank,max=300"`
	HTMLBody string `json:"html_body" validate:"required_without=TextBody"`
	TextBody string `json:"text_body"`
}

func (st *SaveTemplate) Validate(validate *validator.Validate) error {
	st.Subject = core.CleanString(st.Subject)
	if err := validate.Struct(st); err != nil {
		return err
	}
	if _, err := texttmpl.New("subject").Parse(st.Subject); err != nil {
		return core.NewFieldError("subject", err)
	}
	if _, err := texttmpl.New("text").Parse(st.TextBody); err != nil {
		return core.NewFieldError("text_body", err)
	}
	if _, err := htmltmpl.New("html").Parse(st.HTMLBody); err != nil {
		return core.NewFieldError("html_body", err)
	}
	return nil
}

// SendRequest is an ad hoc email sent from the admin panel: either a template or a plain body.
type SendRequest struct {
	To          []string               `json:"to" validate:"required,min=1,max=50,dive,email"`
	Subject     string                 `json:"subject" validate:"required_without=TemplateKey,max=300"`
	Body        string                 `json:"body" validate:"required_without=TemplateKey"`
	TemplateKey string                 `json:"template_key" validate:"omitempty,max=100"`
	Data        map[string]interface{} `json:"data"`
}

func (sr *SendRequest) Validate(validate *validator.Validate) error {
	for i, to := range sr.To {
		sr.To[i] = core.CleanString(to, true /* lower */)
	}
	sr.Subject = core.CleanString(sr.Subject)
	sr.TemplateKey = strings.TrimSpace(sr.TemplateKey)
	return validate.Struct(sr)
}

// Message builds the email to send. sr must have been validated.
func (sr *SendRequest) Message() *core.EmailMessage {
	msg := &core.EmailMessage{
		Subject:      sr.Subject,
		BodyStr:      sr.Body,
		TemplateName: NormalizeKey(sr.TemplateKey),
		TemplateData: sr.Data,
	}
	for _, to := range sr.To {
		msg.To = append(msg.To, mail.Address{Address: to})
	}
	return msg
}
