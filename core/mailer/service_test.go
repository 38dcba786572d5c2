package mailer_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/mailer"
	appfs "github.com/aurorarobotics/aurora/fs"
	emailsvc "github.com/aurorarobotics/aurora/services/email"
	inmemdb "github.com/aurorarobotics/aurora/storage/database/inmem"
	testutil "github.com/aurorarobotics/aurora/tests"
)

type failingSender struct {
	name  string
	calls int
}

func (s *failingSender) Name() string { return s.name }

func (s *failingSender) Send(context.Context, *core.EmailMessage) error {
	s.calls++
	return errors.New(s.name + " unavailable")
}

func newService(t *testing.T, primary, fallback core.EmailSender, dailyCap int) *mailer.Service {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Email.DailyCap = dailyCap
	files, err := core.ParseEmailTemplates(appfs.FS, "templates/email", conf, true)
	require.NoError(t, err)
	repo := inmemdb.NewMailerRepository(inmemdb.Open())
	return mailer.NewService(repo, primary, fallback, files, conf, testutil.NewLogger())
}

func plain(to ...string) *core.EmailMessage {
	msg := &core.EmailMessage{Subject: "Hello", BodyStr: "Hi there"}
	for _, addr := range to {
		msg.To = append(msg.To, mail.Address{Address: addr})
	}
	return msg
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	console := emailsvc.NewConsoleSenderMock(core.NewTestConfig())
	svc := newService(t, console, nil, 0)

	msg := plain("Ada@aurora.test")
	msg.Cc = []mail.Address{{Address: "grace@aurora.test"}}
	require.NoError(t, svc.Send(ctx, msg))

	sent := console.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi there", sent[0].TextContent)

	logs, err := svc.QueryLogs(ctx, mailer.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.Equal(t, mailer.StatusSent, log.Status)
		assert.Equal(t, "console", log.Provider)
		assert.Equal(t, "Hello", log.Subject)
	}

	logs, err = svc.QueryLogs(ctx, mailer.LogFilter{Recipient: "ada@aurora.test"})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.Equal(t, mailer.ErrNoRecipients, svc.Send(ctx, &core.EmailMessage{Subject: "x", BodyStr: "y"}))
}

func TestService_Send_fallback(t *testing.T) {
	ctx := context.Background()
	primary := &failingSender{name: "sendgrid"}
	console := emailsvc.NewConsoleSenderMock(core.NewTestConfig())
	svc := newService(t, primary, console, 0)

	require.NoError(t, svc.Send(ctx, plain("ada@aurora.test")))
	assert.Equal(t, 1, primary.calls)
	assert.Len(t, console.SentMessages(), 1)

	logs, err := svc.QueryLogs(ctx, mailer.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, mailer.StatusSent, logs[0].Status)
	assert.Equal(t, "console", logs[0].Provider)
}

func TestService_Send_allProvidersFail(t *testing.T) {
	ctx := context.Background()
	primary := &failingSender{name: "sendgrid"}
	fallback := &failingSender{name: "smtp"}
	svc := newService(t, primary, fallback, 0)

	err := svc.Send(ctx, plain("ada@aurora.test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp unavailable")
	assert.Contains(t, err.Error(), "sendgrid unavailable")

	logs, err := svc.QueryLogs(ctx, mailer.LogFilter{Status: mailer.StatusFailed})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "smtp", logs[0].Provider)
	assert.Contains(t, logs[0].Error, "smtp unavailable")

	sent, err := svc.SentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "failures do not count toward the cap")
}

func TestService_Send_dailyCap(t *testing.T) {
	ctx := context.Background()
	console := emailsvc.NewConsoleSenderMock(core.NewTestConfig())
	svc := newService(t, console, nil, 3)

	require.NoError(t, svc.Send(ctx, plain("a@aurora.test", "b@aurora.test")))
	assert.Equal(t, mailer.ErrDailyCapReached, svc.Send(ctx, plain("c@aurora.test", "d@aurora.test")))
	require.NoError(t, svc.Send(ctx, plain("c@aurora.test")))
	assert.Equal(t, mailer.ErrDailyCapReached, svc.Send(ctx, plain("e@aurora.test")))
	assert.Len(t, console.SentMessages(), 2)

	sent, err := svc.SentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
}

func TestService_SendTemplate(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator(t)
	console := emailsvc.NewConsoleSenderMock(core.NewTestConfig())
	svc := newService(t, console, nil, 0)
	to := []mail.Address{{Name: "Ada", Address: "ada@aurora.test"}}
	data := map[string]interface{}{
		"FullName": "Ada", "Program": "Robotics Camp", "Amount": "1500.50", "Currency": "NGN", "Reference": "AUR-1",
	}

	// file template
	require.NoError(t, svc.SendTemplate(ctx, "payment_receipt", to, data))
	sent := console.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Payment received: Robotics Camp", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "1500.50 NGN")
	assert.NotEmpty(t, sent[0].HTMLContent)

	// the admin panel overrides it
	st := mailer.SaveTemplate{
		Subject:  "Thanks {{.Data.FullName}}",
		HTMLBody: "<p>{{.Data.Amount}} for {{.Data.Program}} at {{.AppName}}</p>",
		TextBody: "{{.Data.Amount}} {{.Data.Currency}}",
	}
	require.NoError(t, st.Validate(validate))
	tmpl, err := svc.SaveTemplate(ctx, "Payment Receipt", st)
	require.NoError(t, err)
	assert.Equal(t, "payment_receipt", tmpl.Key)

	console.Reset()
	require.NoError(t, svc.SendTemplate(ctx, "payment_receipt", to, data))
	sent = console.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Thanks Ada", sent[0].Subject)
	assert.Equal(t, "1500.50 NGN", sent[0].TextContent)
	assert.Equal(t, "<p>1500.50 for Robotics Camp at Aurora</p>", sent[0].HTMLContent)

	got, err := svc.GetTemplate(ctx, "payment-receipt")
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, got.ID)

	require.NoError(t, svc.DeleteTemplate(ctx, "payment_receipt"))
	_, err = svc.GetTemplate(ctx, "payment_receipt")
	assert.Equal(t, mailer.ErrTemplateNotFound, errors.Cause(err))

	err = svc.SendTemplate(ctx, "nope", to, data)
	assert.Equal(t, mailer.ErrTemplateNotFound, errors.Cause(err))

	_, err = svc.SaveTemplate(ctx, "!!", st)
	assert.Error(t, err)
}

func TestSaveTemplate_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator(t)

	tests := []struct {
		name    string
		st      mailer.SaveTemplate
		wantErr bool
	}{
		{name: "ok", st: mailer.SaveTemplate{Subject: "Hi", TextBody: "Hello"}},
		{name: "no body", st: mailer.SaveTemplate{Subject: "Hi"}, wantErr: true},
		{name: "blank subject", st: mailer.SaveTemplate{Subject: "  ", TextBody: "Hello"}, wantErr: true},
		{name: "broken text", st: mailer.SaveTemplate{Subject: "Hi", TextBody: "{{.Data"}, wantErr: true},
		{name: "broken html", st: mailer.SaveTemplate{Subject: "Hi", HTMLBody: "{{if}}"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.st.Validate(validate)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
