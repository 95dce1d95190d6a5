package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/pkg/mailer"
)

var ErrNoApplicantEmail = errors.New("applicant has no email address")

var submittedTemplate = template.Must(template.New("submitted").Parse(`<!DOCTYPE html>
<html><body>
<p>Dear {{.FullName}},</p>
<p>Thank you for applying to the <strong>{{.Program}}</strong> program.
Your application has been received and is now awaiting review.</p>
<p>Application number: <strong>{{.Number}}</strong></p>
<p>Please keep this number for any further correspondence with the admissions office.</p>
<p>{{.Institution}} Admissions</p>
</body></html>`))

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><body>
<p>Dear {{.FullName}},</p>
<p>The status of your application <strong>{{.Number}}</strong> for the {{.Program}} program
has changed from <em>{{.From}}</em> to <strong>{{.To}}</strong>.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>{{.Institution}} Admissions</p>
</body></html>`))

type mailData struct {
	FullName    string
	Program     string
	Number      string
	From        string
	To          string
	Reason      string
	Institution string
}

// NotificationService renders and sends applicant emails
type NotificationService struct {
	sender      mailer.Sender
	institution string
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender mailer.Sender, institution string) *NotificationService {
	if sender == nil {
		sender = mailer.NoopSender{}
	}
	return &NotificationService{sender: sender, institution: institution}
}

// NotifySubmitted sends the submission confirmation
func (s *NotificationService) NotifySubmitted(ctx context.Context, app *models.Application) error {
	if app.Email == "" {
		return ErrNoApplicantEmail
	}
	body, err := render(submittedTemplate, s.data(app))
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Application received: %s", app.ApplicationNumber)
	return s.sender.Send(ctx, app.Email, subject, body)
}

// NotifyStatusChanged describes a status transition to the applicant
func (s *NotificationService) NotifyStatusChanged(ctx context.Context, app *models.Application, from, to domain.ApplicationStatus) error {
	if app.Email == "" {
		return ErrNoApplicantEmail
	}
	data := s.data(app)
	data.From = from.Label()
	data.To = to.Label()
	if to == domain.StatusRejected && app.RejectionReason != nil {
		data.Reason = *app.RejectionReason
	}
	body, err := render(statusTemplate, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Application %s: %s", app.ApplicationNumber, to.Label())
	return s.sender.Send(ctx, app.Email, subject, body)
}

func (s *NotificationService) data(app *models.Application) mailData {
	return mailData{
		FullName:    app.FullName,
		Program:     app.ProgramApplied,
		Number:      app.ApplicationNumber,
		Institution: s.institution,
	}
}

func render(t *template.Template, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}
