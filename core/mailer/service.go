package mailer

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"net/mail"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
)

var (
	// errors
	ErrTemplateNotFound = errors.New("email template not found")
	ErrDailyCapReached  = errors.New("daily email limit reached")
	ErrNoRecipients     = errors.New("email has no recipients")
)

type (
	Repository interface {
		QueryTemplates(ctx context.Context) ([]Template, error)
		GetTemplateByKey(ctx context.Context, key string) (Template, error)
		// SaveTemplate inserts or replaces the template with the same key.
		SaveTemplate(ctx context.Context, tmpl Template) (Template, error)
		DeleteTemplate(ctx context.Context, key string) error

		CreateLog(ctx context.Context, log Log) error
		QueryLogs(ctx context.Context, filter LogFilter) ([]Log, error)
		// CountSentSince counts logs with status "sent" created at or after since.
		CountSentSince(ctx context.Context, since time.Time) (int, error)
	}

	Service struct {
		repo        Repository
		primary     core.EmailSender
		fallback    core.EmailSender // optional
		files       *core.EmailTemplates
		dailyCap    int
		siteBaseURL string
		appName     string
		logger      core.Logger
		nowFunc     func() time.Time
	}
)

func NewService(
	repo Repository,
	primary, fallback core.EmailSender,
	files *core.EmailTemplates,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		primary:     primary,
		fallback:    fallback,
		files:       files,
		dailyCap:    conf.Email.DailyCap,
		siteBaseURL: conf.SiteBaseURL,
		appName:     conf.AppName,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SentToday counts the emails sent since 00:00 UTC.
func (svc *Service) SentToday(ctx context.Context) (int, error) {
	return svc.repo.CountSentSince(ctx, startOfDay(svc.nowFunc()))
}

func (svc *Service) checkCap(ctx context.Context, recipients int) error {
	if svc.dailyCap <= 0 {
		return nil
	}
	sent, err := svc.SentToday(ctx)
	if err != nil {
		return errors.Wrap(err, "counting sent emails")
	}
	if sent+recipients > svc.dailyCap {
		return ErrDailyCapReached
	}
	return nil
}

// render fills msg contents from its template: the DB template of that key first,
// then the file template of the same name.
func (svc *Service) render(ctx context.Context, msg *core.EmailMessage) error {
	if msg.TemplateName == "" {
		if msg.BodyStr != "" {
			msg.TextContent = msg.BodyStr
		}
		return nil
	}

	tmpl, err := svc.repo.GetTemplateByKey(ctx, msg.TemplateName)
	switch errors.Cause(err) {
	case nil:
		return svc.renderDBTemplate(tmpl, msg)
	case ErrTemplateNotFound:
		if svc.files == nil || !svc.files.Has(msg.TemplateName) {
			return errors.Wrap(ErrTemplateNotFound, msg.TemplateName)
		}
		return svc.files.Render(msg)
	default:
		return errors.Wrap(err, "getting email template")
	}
}

func (svc *Service) renderDBTemplate(tmpl Template, msg *core.EmailMessage) error {
	data := core.ContextData{SiteBaseURL: svc.siteBaseURL, AppName: svc.appName, Data: msg.TemplateData}

	if msg.Subject == "" {
		s, err := executeText(tmpl.Subject, data)
		if err != nil {
			return errors.Wrap(err, "rendering subject")
		}
		msg.Subject = strings.TrimSpace(s)
	}
	if tmpl.TextBody != "" {
		s, err := executeText(tmpl.TextBody, data)
		if err != nil {
			return errors.Wrap(err, "rendering text body")
		}
		msg.TextContent = s
	}
	if tmpl.HTMLBody != "" {
		t, err := htmltmpl.New(tmpl.Key).Parse(tmpl.HTMLBody)
		if err != nil {
			return errors.Wrap(err, "parsing html body")
		}
		var buff bytes.Buffer
		if err = t.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html body")
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}

func executeText(text string, data interface{}) (string, error) {
	t, err := texttmpl.New("").Parse(text)
	if err != nil {
		return "", err
	}
	var buff bytes.Buffer
	if err = t.Execute(&buff, data); err != nil {
		return "", err
	}
	return buff.String(), nil
}

// Send delivers msg with the primary provider, falling back to the secondary one on failure.
// Every outcome is logged per recipient. Sending is refused once the daily cap is reached.
func (svc *Service) Send(ctx context.Context, msg *core.EmailMessage) error {
	if !msg.HasRecipients() {
		return ErrNoRecipients
	}
	if err := svc.checkCap(ctx, msg.Recipients()); err != nil {
		return err
	}
	if err := svc.render(ctx, msg); err != nil {
		return errors.Wrap(err, "rendering email")
	}

	provider := svc.primary.Name()
	sendErr := svc.primary.Send(ctx, msg)
	if sendErr != nil && svc.fallback != nil {
		svc.logger.Warn("primary email provider failed, trying fallback", sendErr, map[string]interface{}{
			"provider": provider, "fallback": svc.fallback.Name(),
		})
		provider = svc.fallback.Name()
		if fbErr := svc.fallback.Send(ctx, msg); fbErr != nil {
			sendErr = errors.Wrapf(fbErr, "%s (primary: %v)", provider, sendErr)
		} else {
			sendErr = nil
		}
	}

	svc.writeLogs(ctx, msg, provider, sendErr)
	if sendErr != nil {
		return errors.Wrap(sendErr, "sending email")
	}
	return nil
}

// SendTemplate renders the template key with data and sends it to `to`.
func (svc *Service) SendTemplate(ctx context.Context, key string, to []mail.Address, data interface{}) error {
	return svc.Send(ctx, &core.EmailMessage{To: to, TemplateName: key, TemplateData: data})
}

func (svc *Service) writeLogs(ctx context.Context, msg *core.EmailMessage, provider string, sendErr error) {
	now := svc.nowFunc().UTC()
	status := StatusSent
	var errMsg string
	if sendErr != nil {
		status = StatusFailed
		errMsg = sendErr.Error()
	}

	recipients := make([]mail.Address, 0, msg.Recipients())
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.Cc...)
	recipients = append(recipients, msg.Bcc...)
	for _, rcpt := range recipients {
		log := Log{
			ID:          uuid.New().String(),
			Recipient:   strings.ToLower(rcpt.Address),
			Subject:     msg.Subject,
			TemplateKey: msg.TemplateName,
			Provider:    provider,
			Status:      status,
			Error:       errMsg,
			CreatedAt:   now,
		}
		if err := svc.repo.CreateLog(ctx, log); err != nil {
			svc.logger.Error("writing email log", err, map[string]interface{}{"recipient": log.Recipient})
		}
	}
}

// Templates

func (svc *Service) QueryTemplates(ctx context.Context) ([]Template, error) {
	return svc.repo.QueryTemplates(ctx)
}

// NormalizeKey maps "Payment Receipt" or "payment-receipt" to "payment_receipt".
func NormalizeKey(key string) string {
	return strings.ReplaceAll(core.Slugify(key), "-", "_")
}

func (svc *Service) GetTemplate(ctx context.Context, key string) (Template, error) {
	return svc.repo.GetTemplateByKey(ctx, NormalizeKey(key))
}

// SaveTemplate creates or replaces the template key. st must have been validated.
func (svc *Service) SaveTemplate(ctx context.Context, key string, st SaveTemplate) (Template, error) {
	if key = NormalizeKey(key); key == "" {
		return Template{}, core.NewFieldError("key", errors.New("invalid template key"))
	}
	tmpl := Template{
		ID:        uuid.New().String(),
		Key:       key,
		Subject:   st.Subject,
		HTMLBody:  st.HTMLBody,
		TextBody:  st.TextBody,
		UpdatedAt: svc.nowFunc().UTC(),
	}
	return svc.repo.SaveTemplate(ctx, tmpl)
}

func (svc *Service) DeleteTemplate(ctx context.Context, key string) error {
	return svc.repo.DeleteTemplate(ctx, NormalizeKey(key))
}

// Logs

func (svc *Service) QueryLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	return svc.repo.QueryLogs(ctx, filter)
}
