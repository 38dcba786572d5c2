package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/mailer"
)

func TestEmailAPI_send(t *testing.T) {
	f := newFixture(t, func(conf *core.Config) { conf.Email.DailyCap = 1 })
	editor := f.cookie(t, f.editor)
	body := []byte(`{"to":["Parent@Example.com"],"subject":"Camp update","body":"See you Monday."}`)

	tests := []httpTest{
		{
			name:     "invalid recipient",
			method:   http.MethodPost,
			path:     "/api/admin/emails/send",
			body:     []byte(`{"to":["nope"],"subject":"x","body":"y"}`),
			cookie:   editor,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "sent",
			method:   http.MethodPost,
			path:     "/api/admin/emails/send",
			body:     body,
			cookie:   editor,
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":"Email sent."}`),
		},
		{
			name:     "daily cap reached",
			method:   http.MethodPost,
			path:     "/api/admin/emails/send",
			body:     body,
			cookie:   editor,
			wantCode: http.StatusTooManyRequests,
			wantData: marchallObj(t, httpErr{Error: mailer.ErrDailyCapReached.Error()}),
		},
		{
			name:     "stats",
			method:   http.MethodGet,
			path:     "/api/admin/emails/stats",
			cookie:   editor,
			wantCode: http.StatusOK,
			wantData: []byte(`{"sent_today":1}`),
		},
		{
			name:     "bad since",
			method:   http.MethodGet,
			path:     "/api/admin/emails/logs?since=yesterday",
			cookie:   editor,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}

	rec := f.serve(newRequest(http.MethodGet, "/api/admin/emails/logs?status=sent&since=2020-01-01", editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var logs []mailer.Log
	unmarshal(t, rec, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "parent@example.com", logs[0].Recipient)
	assert.Equal(t, "console", logs[0].Provider)
	assert.Len(t, f.sender.SentMessages(), 1)
}

func TestEmailAPI_templates(t *testing.T) {
	f := newFixture(t)
	editor := f.cookie(t, f.editor)

	rec := f.serve(newRequest(http.MethodPut, "/api/admin/emails/templates/welcome-note", editor,
		[]byte(`{"subject":"Welcome {{.Data.Name}}","text_body":"Hello {{.Data.Name}}"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tmpl mailer.Template
	unmarshal(t, rec, &tmpl)
	assert.Equal(t, "welcome_note", tmpl.Key)

	tests := []httpTest{
		{
			name:     "broken template",
			method:   http.MethodPut,
			path:     "/api/admin/emails/templates/broken",
			body:     []byte(`{"subject":"Hi {{.Data","text_body":"x"}`),
			cookie:   editor,
			wantCode: http.StatusBadRequest,
		},
		{name: "retrieve", method: http.MethodGet, path: "/api/admin/emails/templates/welcome_note", cookie: editor, wantCode: http.StatusOK},
		{name: "list", method: http.MethodGet, path: "/api/admin/emails/templates", cookie: editor, wantCode: http.StatusOK, wantData: marchallObj(t, []mailer.Template{tmpl})},
		{name: "delete", method: http.MethodDelete, path: "/api/admin/emails/templates/welcome_note", cookie: editor, wantCode: http.StatusNoContent},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/admin/emails/templates/welcome_note",
			cookie:   editor,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: mailer.ErrTemplateNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}
