package prospect

import (
	"context"
	"errors"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/google/uuid"
)

const catalogueVersion = "2025"

// ContactForm is a submission of the public contact form.
type ContactForm struct {
	FirstName            string
	LastName             string
	Email                string
	Message              string
	InterestedFormations []string
}

// CatalogueRequest asks for the catalogue PDF by email.
type CatalogueRequest struct {
	FirstName            string
	LastName             string
	Email                string
	InterestedFormations []string
}

// SubmitContactForm stores the message, records the interaction and emails
// the administrator. When the email fails the message stays saved and the
// error carries its id.
func (s *service) SubmitContactForm(ctx context.Context, form ContactForm, meta Meta) (*ContactMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := s.now()
	msg := &ContactMessage{
		ID:                   id.String(),
		FirstName:            formatFirstName(form.FirstName),
		LastName:             formatLastName(form.LastName),
		Email:                normalizeEmail(form.Email),
		Message:              form.Message,
		InterestedFormations: nonNil(form.InterestedFormations),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.CreateContactMessage(ctx, msg); err != nil {
		s.logger.Error("failed to save contact message", "error", err)
		return nil, apperror.Internal(err)
	}

	_, _, err = s.RecordInteraction(ctx, RecordInput{
		Email:     msg.Email,
		FirstName: msg.FirstName,
		LastName:  msg.LastName,
		Channel:   InteractionContactMessage,
		Data: map[string]any{
			"message":              msg.Message,
			"messageId":            msg.ID,
			"firstName":            msg.FirstName,
			"lastName":             msg.LastName,
			"interestedFormations": msg.InterestedFormations,
		},
		Meta: meta,
	})
	if err != nil {
		return nil, err
	}

	email, err := notification.Compose(ctx, s.templates, templates.ContactAdmin, s.config.Mail.AdminAddress, templates.ContactAdminData{
		FirstName:            msg.FirstName,
		LastName:             msg.LastName,
		Email:                msg.Email,
		Message:              msg.Message,
		InterestedFormations: msg.InterestedFormations,
	})
	if err == nil {
		err = s.mailer.SendEmail(ctx, email)
	}
	if err != nil {
		s.logger.Error("failed to notify administrator of contact message", "message_id", msg.ID, "error", err)
		return msg, apperror.ErrEmailDelivery.WithCause(err).
			WithDetail("your message was saved but the notification email could not be sent").
			WithContext(map[string]any{"messageSaved": true, "messageId": msg.ID})
	}

	s.logger.Info("contact message processed", "message_id", msg.ID)
	return msg, nil
}

// RequestCatalogue records the download, emails the catalogue to the
// requester and notifies the administrator, mentioning the previous
// download when there was one.
func (s *service) RequestCatalogue(ctx context.Context, req CatalogueRequest, meta Meta) error {
	email := normalizeEmail(req.Email)
	formations := nonNil(req.InterestedFormations)

	previous, err := s.previousDownload(ctx, email)
	if err != nil {
		return err
	}

	p, _, err := s.RecordInteraction(ctx, RecordInput{
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Channel:   InteractionCatalogueDownload,
		Data: map[string]any{
			"catalogueVersion":     catalogueVersion,
			"firstName":            formatFirstName(req.FirstName),
			"lastName":             formatLastName(req.LastName),
			"interestedFormations": formations,
		},
		Meta: meta,
	})
	if err != nil {
		return err
	}

	delivery, err := notification.Compose(ctx, s.templates, templates.CatalogueDelivery, email, templates.CatalogueDeliveryData{
		FirstName:    formatFirstName(req.FirstName),
		SupportEmail: s.config.Mail.SupportEmail,
	}, notification.Attachment{
		Name:        s.config.Storage.CatalogueName,
		Path:        s.config.Storage.CataloguePath,
		ContentType: "application/pdf",
	})
	if err == nil {
		err = s.mailer.SendEmail(ctx, delivery)
	}
	if err != nil {
		s.logger.Error("failed to send catalogue", "prospect_id", p.ID, "error", err)
		return apperror.ErrEmailDelivery.WithCause(err).
			WithDetail("your request was saved but the catalogue could not be sent")
	}

	admin, err := notification.Compose(ctx, s.templates, templates.CatalogueAdmin, s.config.Mail.AdminAddress, templates.CatalogueAdminData{
		FirstName:            formatFirstName(req.FirstName),
		LastName:             formatLastName(req.LastName),
		Email:                email,
		InterestedFormations: formations,
		PreviousDownload:     previous,
	})
	if err != nil {
		s.logger.Error("failed to render catalogue notification", "error", err)
		return nil
	}
	s.mailer.QueueEmail(ctx, admin)

	s.logger.Info("catalogue sent", "prospect_id", p.ID)
	return nil
}

// previousDownload formats the date of the last catalogue download of email,
// or returns "" for a first download.
func (s *service) previousDownload(ctx context.Context, email string) (string, error) {
	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProspectNotFound) {
			return "", nil
		}
		return "", apperror.Internal(err)
	}
	last, err := s.repo.LastInteraction(ctx, p.ID, InteractionCatalogueDownload)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if last == nil {
		return "", nil
	}
	return last.CreatedAt.In(s.loc).Format("02/01/2006 à 15:04"), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
