package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resendlabs/resend-go"
)

// ErrAttachmentsUnsupported is returned by the Resend sender for emails that
// carry file attachments. Configure the SMTP provider for those.
var ErrAttachmentsUnsupported = errors.New("resend sender does not deliver attachments")

type resendEmailSender struct {
	client *resend.Client
	from   string
	log    *slog.Logger
}

// NewResendEmailSender creates a Sender backed by the Resend HTTP API.
func NewResendEmailSender(apiKey, from string, log *slog.Logger) (Sender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}
	return &resendEmailSender{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}, nil
}

func (s *resendEmailSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.Attachments) > 0 {
		return ErrAttachmentsUnsupported
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
		Text:    e.Text,
	}
	sent, err := s.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	s.log.Debug("email sent via resend", "to", e.To, "id", sent.Id)
	return nil
}
