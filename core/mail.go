package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	texttmpl "text/template"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

type (
	Attachment struct {
		Content     []byte
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		SiteBaseURL string
		AppName     string
		Data        interface{}
	}

	// EmailSender is an email provider: SendGrid, SMTP, console...
	EmailSender interface {
		Name() string
		Send(ctx context.Context, msg *EmailMessage) error
	}
)

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}
	at := Attachment{Filename: filename, Content: content}
	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = mimetype.Detect(content).String()
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(fp string, contentType ...string) error {
	f, err := os.Open(fp)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(fp), contentType...)
}

// Recipients returns the number of addresses the message will be delivered to.
func (m *EmailMessage) Recipients() int { return len(m.To) + len(m.Cc) + len(m.Bcc) }

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// EmailTemplates holds the file templates shipped with the binary.
// A template `x` is made of `x.txt` and/or `x.gohtml`, both wrapped by `_base.<ext>`.
// The text template may define a "subject" block.
type EmailTemplates struct {
	siteBaseURL string
	appName     string
	tmpls       map[string]*emailTemplate
}

// ParseEmailTemplates parses every template found in dir of fsys.
// In strict mode, missing keys in the template data are errors.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config, strict bool) (*EmailTemplates, error) {
	et := &EmailTemplates{
		siteBaseURL: conf.SiteBaseURL,
		appName:     conf.AppName,
		tmpls:       make(map[string]*emailTemplate),
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading templates dir")
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if entry.IsDir() || strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		tmpl, ok := et.tmpls[name]
		if !ok {
			tmpl = new(emailTemplate)
			et.tmpls[name] = tmpl
		}

		if ext == ".txt" {
			t, err := texttmpl.ParseFS(fsys, path.Join(dir, "_base.txt"), path.Join(dir, fname))
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl.text = t
		} else {
			t, err := htmltmpl.ParseFS(fsys, path.Join(dir, "_base.gohtml"), path.Join(dir, fname))
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpl.html = t
		}
	}
	return et, nil
}

func (et *EmailTemplates) Has(name string) bool {
	_, ok := et.tmpls[name]
	return ok
}

func (et *EmailTemplates) contextData(data interface{}) ContextData {
	return ContextData{SiteBaseURL: et.siteBaseURL, AppName: et.appName, Data: data}
}

// Render fills the subject (when empty) and contents of msg from its template.
func (et *EmailTemplates) Render(msg *EmailMessage) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
	}
	if msg.TemplateName == "" {
		return nil
	}
	tmpl, ok := et.tmpls[msg.TemplateName]
	if !ok {
		return errors.Errorf("email template %q not found", msg.TemplateName)
	}
	data := et.contextData(msg.TemplateData)

	if tmpl.text != nil {
		if msg.Subject == "" && tmpl.text.Lookup("subject") != nil {
			var buff bytes.Buffer
			if err := tmpl.text.ExecuteTemplate(&buff, "subject", data); err != nil {
				return errors.Wrap(err, "rendering subject")
			}
			msg.Subject = strings.TrimSpace(buff.String())
		}
		if msg.BodyStr == "" {
			var buff bytes.Buffer
			if err := tmpl.text.Execute(&buff, data); err != nil {
				return errors.Wrap(err, "rendering text")
			}
			msg.TextContent = buff.String()
		}
	}

	if tmpl.html != nil {
		var buff bytes.Buffer
		if err := tmpl.html.Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}
