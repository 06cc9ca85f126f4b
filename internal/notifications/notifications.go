package notifications

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// Message is one rendered member notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message. Implementations must treat delivery
// failures as returnable errors, never panics; the dispatcher records the
// outcome either way.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc allows using plain functions as senders.
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// RenderContext carries the fields the notification template may reference.
type RenderContext struct {
	MemberEmail  string
	EmployeeName string
	CaseNumber   string
	CaseURL      string
}

const defaultSubject = "Your benefits case %s is ready"

const defaultBodyTemplate = `Hello,

The benefits case {{.CaseNumber}} for {{.EmployeeName}} has been completed
and the results are now available in the portal:

    {{.CaseURL}}

This is an automated message; replies are not monitored.
`

// Renderer produces member notifications from a case.
type Renderer struct {
	portalBaseURL string
	tmpl          *template.Template
}

// NewRenderer parses the notification template once up front.
func NewRenderer(portalBaseURL string) (*Renderer, error) {
	tmpl, err := template.New("member_notification").Parse(defaultBodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse notification template: %w", err)
	}
	return &Renderer{portalBaseURL: portalBaseURL, tmpl: tmpl}, nil
}

// Render builds the message for one released case.
func (r *Renderer) Render(c *models.Case) (Message, error) {
	rc := RenderContext{
		MemberEmail:  c.MemberEmail,
		EmployeeName: c.EmployeeName,
		CaseNumber:   c.CaseNumber,
		CaseURL:      fmt.Sprintf("%s/cases/%s", r.portalBaseURL, c.ID),
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, rc); err != nil {
		return Message{}, fmt.Errorf("render notification for case %s: %w", c.ID, err)
	}
	return Message{
		To:      c.MemberEmail,
		Subject: fmt.Sprintf(defaultSubject, c.CaseNumber),
		Body:    buf.String(),
	}, nil
}
