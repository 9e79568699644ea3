package notification

import (
	"context"
	"fmt"

	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
)

// Compose renders a typed template into an Email addressed to to.
func Compose[T any](ctx context.Context, e *templates.Engine, h templates.Handle[T], to string, data T, attachments ...Attachment) (Email, error) {
	r, err := templates.Render(ctx, e, h, data)
	if err != nil {
		return Email{}, fmt.Errorf("render %s: %w", h.ID(), err)
	}
	return Email{
		To:          to,
		Subject:     r.Subject,
		HTML:        r.EmailHTML,
		Text:        r.EmailText,
		Attachments: attachments,
	}, nil
}
