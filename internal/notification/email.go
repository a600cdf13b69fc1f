package notification

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/streambill/streambill/internal/config"
	ierr "github.com/streambill/streambill/internal/errors"
)

// EmailSink delivers customer-facing notifications through Resend.
type EmailSink struct {
	client *resend.Client
	cfg    config.EmailConfig
}

func NewEmailSink(cfg config.EmailConfig) *EmailSink {
	return &EmailSink{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

func (s *EmailSink) ServiceActivated(ctx context.Context, event ServiceEvent) error {
	subject := fmt.Sprintf("Your %s service is active", event.ProductName)
	if event.IsCreditTopUp {
		subject = fmt.Sprintf("Credits added to your %s account", event.ProductName)
	}
	return s.send(ctx, event.CustomerEmail, subject, activatedBody(event))
}

func (s *EmailSink) ServiceRenewed(ctx context.Context, event ServiceEvent) error {
	subject := fmt.Sprintf("Your %s service has been renewed", event.ProductName)
	return s.send(ctx, event.CustomerEmail, subject, renewedBody(event))
}

func (s *EmailSink) ExpiryWarning(ctx context.Context, event ServiceEvent) error {
	subject := fmt.Sprintf("Your %s service expires soon", event.ProductName)
	return s.send(ctx, event.CustomerEmail, subject, expiryBody(event))
}

// ProvisioningFailed is operator facing; email goes to customers only.
func (s *EmailSink) ProvisioningFailed(context.Context, FailureEvent) error {
	return nil
}

func (s *EmailSink) send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.cfg.FromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if s.cfg.ReplyTo != "" {
		params.ReplyTo = s.cfg.ReplyTo
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return ierr.WithError(err).
			WithHint("Email delivery failed").
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}

func activatedBody(event ServiceEvent) string {
	if event.IsCreditTopUp {
		return fmt.Sprintf(
			"<p>Hi %s,</p><p>Your credit purchase for <strong>%s</strong> has been applied to your existing account <strong>%s</strong>.</p>",
			event.CustomerName, event.ProductName, event.Username)
	}
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your <strong>%s</strong> service is ready.</p><p>Username: <strong>%s</strong><br>Password: <strong>%s</strong></p>",
		event.CustomerName, event.ProductName, event.Username, event.Password)
	if event.StreamingURL != "" {
		body += fmt.Sprintf("<p>Server: %s</p>", event.StreamingURL)
	}
	if event.ExpiryDate != nil {
		body += fmt.Sprintf("<p>Valid until: %s</p>", event.ExpiryDate.Format("2 January 2006"))
	}
	return body
}

func renewedBody(event ServiceEvent) string {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your <strong>%s</strong> service has been renewed.</p>",
		event.CustomerName, event.ProductName)
	if event.ExpiryDate != nil {
		body += fmt.Sprintf("<p>New expiry: %s</p>", event.ExpiryDate.Format("2 January 2006"))
	}
	return body
}

func expiryBody(event ServiceEvent) string {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your <strong>%s</strong> service is about to expire.</p>",
		event.CustomerName, event.ProductName)
	if event.ExpiryDate != nil {
		body += fmt.Sprintf("<p>Expiry date: %s</p>", event.ExpiryDate.Format("2 January 2006"))
	}
	body += "<p>Renew now to avoid interruption.</p>"
	return body
}
