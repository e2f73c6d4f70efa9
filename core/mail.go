package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"
)

var (
	textTemplates *texttmpl.Template
	htmlTemplates *htmltmpl.Template
	tmplInit      sync.Once
)

type (
	Attachment struct {
		Content     *bytes.Buffer
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
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Email templates are registered in code so deployments need no asset files.
var emailTemplates = map[string]struct{ text, html string }{
	"password-reset": {
		text: `Hello {{ .Data.Name }},

You requested a password reset for your account.
Follow this link to set a new password:

{{ .FrontendBaseURL }}/password-reset/{{ .Data.UID }}/{{ .Data.Token }}

If you did not request this, you can safely ignore this email.`,
		html: `<p>Hello {{ .Data.Name }},</p>
<p>You requested a password reset for your account.
Follow <a href="{{ .FrontendBaseURL }}/password-reset/{{ .Data.UID }}/{{ .Data.Token }}">this link</a> to set a new password.</p>
<p>If you did not request this, you can safely ignore this email.</p>`,
	},
	"enrollment-confirmation": {
		text: `Hello {{ .Data.Name }},

You are now enrolled in "{{ .Data.CourseTitle }}".
Head over to {{ .FrontendBaseURL }}/courses/{{ .Data.CourseID }} to get started.`,
		html: `<p>Hello {{ .Data.Name }},</p>
<p>You are now enrolled in &quot;{{ .Data.CourseTitle }}&quot;.
<a href="{{ .FrontendBaseURL }}/courses/{{ .Data.CourseID }}">Get started</a>.</p>`,
	},
}

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: Conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmpl := textTemplates.Lookup(m.TemplateName)
	if tmpl == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmpl := htmlTemplates.Lookup(m.TemplateName)
	if tmpl == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	tmplInit.Do(parseTemplates) // only execute once during first request
	if err := m.renderText(); err != nil {
		return err
	}
	return m.renderHTML()
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

func parseTemplates() {
	textTemplates = texttmpl.New("email")
	htmlTemplates = htmltmpl.New("email")
	for name, tmpls := range emailTemplates {
		textTemplates = texttmpl.Must(textTemplates.New(name).Parse(tmpls.text))
		htmlTemplates = htmltmpl.Must(htmlTemplates.New(name).Parse(tmpls.html))
	}
}
