// Package email sends transactional mail for the FutureMe bot.
//
// The only message today is the bursary application confirmation, delivered
// through Resend after a submission is persisted.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"

	"github.com/resend/resend-go/v2"

	"github.com/futureme-za/futureme/internal/models"
)

// Sender delivers transactional email. Delivery failure never unwinds a
// persisted submission; callers degrade their reply instead.
type Sender interface {
	// SendApplicationConfirmation emails the applicant their reference number
	// and matched bursaries.
	SendApplicationConfirmation(ctx context.Context, app models.Application) error
}

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "FutureMe <noreply@futureme.org.za>"

// Opts holds configuration options for the Resend sender.
type Opts struct {
	APIKey  string
	From    string
	ReplyTo string
}

// Option defines a configuration option for the Resend sender.
type Option func(*Opts)

// WithAPIKey sets the Resend API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithFrom sets the sender address.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithReplyTo sets the reply-to address.
func WithReplyTo(replyTo string) Option {
	return func(o *Opts) { o.ReplyTo = replyTo }
}

// ResendSender sends mail through the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

var _ Sender = (*ResendSender)(nil)

// NewResendSender creates a Resend-backed sender. The API key comes from
// options or the RESEND_API_KEY environment variable.
func NewResendSender(opts ...Option) (*ResendSender, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("RESEND_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY not set")
	}
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	slog.Debug("email.NewResendSender: sender initialized", "from", cfg.From)
	return &ResendSender{
		client:  resend.NewClient(cfg.APIKey),
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
	}, nil
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<h2>Bursary Application Received</h2>
<p>Hi {{.FullName}},</p>
<p>Your bursary application has been submitted. Keep this reference number for follow-ups:</p>
<p><strong>{{.ApplicationRef}}</strong></p>
<h3>Your details</h3>
<ul>
<li>Province: {{.Province}}</li>
<li>Academic level: {{.AcademicLevel}}</li>
<li>Field of study: {{.FieldOfStudy}}</li>
<li>Academic average: {{printf "%.0f" .AcademicAverage}}%</li>
</ul>
{{if .MatchedBursaries}}<h3>Bursaries matched to your profile</h3>
<ul>
{{range .MatchedBursaries}}<li><strong>{{.Name}}</strong> ({{.Funder}}) &mdash; {{.Reason}}. Amount: {{.Amount}}. Deadline: {{.Deadline}}.</li>
{{end}}</ul>
{{end}}<p>We will be in touch about next steps. Reply on WhatsApp any time to check your status.</p>
<p>&mdash; The FutureMe team</p>`))

// SendApplicationConfirmation emails the applicant their reference number and
// matched bursaries.
func (s *ResendSender) SendApplicationConfirmation(ctx context.Context, app models.Application) error {
	if app.Email == "" {
		return fmt.Errorf("application %s has no email address", app.ID)
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, app); err != nil {
		slog.Error("ResendSender.SendApplicationConfirmation: template failed", "error", err, "id", app.ID)
		return fmt.Errorf("failed to render confirmation email for %s: %w", app.ID, err)
	}

	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{app.Email},
		Subject: fmt.Sprintf("Your bursary application %s", app.ApplicationRef),
		Html:    body.String(),
	}
	if s.replyTo != "" {
		req.ReplyTo = s.replyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		slog.Error("ResendSender.SendApplicationConfirmation: send failed", "error", err, "to", app.Email, "ref", app.ApplicationRef)
		return fmt.Errorf("failed to send confirmation email for %s: %w", app.ApplicationRef, err)
	}
	slog.Info("ResendSender.SendApplicationConfirmation: sent", "to", app.Email, "ref", app.ApplicationRef, "emailID", sent.Id)
	return nil
}

// MockSender records confirmation sends for tests.
type MockSender struct {
	Sent []models.Application
	Err  error
}

var _ Sender = (*MockSender)(nil)

func (m *MockSender) SendApplicationConfirmation(_ context.Context, app models.Application) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, app)
	return nil
}
