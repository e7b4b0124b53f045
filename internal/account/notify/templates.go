package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// mailTemplate pairs a subject line with a plain-text body template. Bodies
// receive the payload map directly ({{.code}}, {{.email}}).
type mailTemplate struct {
	subject string
	body    *template.Template
}

// Registry maps template identifiers to mail templates. The mapping is
// explicit and checked at construction rather than resolved by name at send
// time, so a missing template is a startup failure instead of a runtime one.
type Registry struct {
	templates map[string]mailTemplate
}

var defaultTemplates = map[string]struct{ subject, body string }{
	"EmailVerificationTemplate": {
		subject: "Verify your email address",
		body: "Hi,\n\n" +
			"Your email verification code is {{.code}}. It expires in 5 minutes.\n\n" +
			"If you did not request this, you can ignore this message.\n",
	},
	"ForgotPasswordTemplate": {
		subject: "Reset your password",
		body: "Hi,\n\n" +
			"Your password reset code is {{.code}}. It expires in 5 minutes.\n\n" +
			"If you did not request a password reset for {{.email}}, you can ignore this message.\n",
	},
}

// NewRegistry builds the default template registry, parsing every body
// template up front.
func NewRegistry() (*Registry, error) {
	r := &Registry{templates: make(map[string]mailTemplate, len(defaultTemplates))}
	for id, t := range defaultTemplates {
		parsed, err := template.New(id).Option("missingkey=error").Parse(t.body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", id, err)
		}
		r.templates[id] = mailTemplate{subject: t.subject, body: parsed}
	}
	return r, nil
}

// Render produces the subject and body for a template. An unknown template
// identifier is an error so the caller can fail the hand-off.
func (r *Registry) Render(templateID string, data map[string]string) (subject, body string, err error) {
	t, ok := r.templates[templateID]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", templateID)
	}

	var sb strings.Builder
	if err := t.body.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", templateID, err)
	}
	return t.subject, sb.String(), nil
}
