package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

// smtpEmailSender sends through an SMTP relay with STARTTLS.
type smtpEmailSender struct {
	server *mail.SMTPServer
	from   string
	log    *slog.Logger
}

// NewSMTPEmailSender creates a Sender backed by an SMTP server.
func NewSMTPEmailSender(host string, port int, username, password, from string, log *slog.Logger) Sender {
	server := mail.NewSMTPClient()
	server.Host = host
	server.Port = port
	server.Username = username
	server.Password = password
	server.Encryption = mail.EncryptionSTARTTLS
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 30 * time.Second

	return &smtpEmailSender{
		server: server,
		from:   from,
		log:    log,
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMSG()
	msg.SetFrom(s.from).AddTo(e.To).SetSubject(e.Subject)
	msg.SetBody(mail.TextHTML, e.HTML)
	if e.Text != "" {
		msg.AddAlternative(mail.TextPlain, e.Text)
	}
	for _, a := range e.Attachments {
		msg.Attach(&mail.File{FilePath: a.Path, Name: a.Name, MimeType: a.ContentType})
	}
	if msg.Error != nil {
		return fmt.Errorf("build email: %w", msg.Error)
	}

	client, err := s.server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	if err := msg.Send(client); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Debug("email sent via smtp", "to", e.To)
	return nil
}
