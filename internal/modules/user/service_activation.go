package user

import (
	"context"
	"errors"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/google/uuid"
)

// CreateActivationCode issues a code for email and role and emails it.
func (s *service) CreateActivationCode(ctx context.Context, adminID, email string, role Role) (*ActivationCode, error) {
	exists, err := s.AccountExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}
	return s.IssueActivationCode(ctx, adminID, email, role)
}

// IssueActivationCode creates and emails a code without checking for an
// existing account. Callers decide whether an account blocks issuance.
func (s *service) IssueActivationCode(ctx context.Context, issuerID, email string, role Role) (*ActivationCode, error) {
	if role != RoleLearner && role != RoleProfessional {
		return nil, ErrInvalidRole
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	c := &ActivationCode{
		ID:          id.String(),
		Role:        role,
		TargetEmail: normalizeEmail(email),
		ExpiresAt:   s.now().Add(s.activationTTL()),
	}
	if issuerID != "" {
		c.CreatedBy = &issuerID
	}

	// Codes are random; a collision on the unique index is retried a few times.
	for attempt := 0; ; attempt++ {
		if c.Code, err = generateActivationCode(); err != nil {
			return nil, apperror.Internal(err)
		}
		err = s.repo.CreateActivationCode(ctx, c)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err, "activation_codes_code_key") || attempt >= 3 {
			s.logger.Error("failed to create activation code", "error", err)
			return nil, apperror.Internal(err)
		}
	}

	s.sendActivationCode(ctx, c)
	s.logger.Info("activation code issued", "code_id", c.ID, "role", c.Role)
	return c, nil
}

func (s *service) sendActivationCode(ctx context.Context, c *ActivationCode) {
	msg, err := notification.Compose(ctx, s.templates, templates.ActivationCode, c.TargetEmail, templates.ActivationCodeData{
		Email:        c.TargetEmail,
		Code:         c.Code,
		RoleLabel:    c.Role.Label(),
		ExpiresAt:    c.ExpiresAt.Format("02/01/2006"),
		RegisterURL:  s.config.Server.FrontendURL + "/register",
		SupportEmail: s.config.Mail.SupportEmail,
	})
	if err != nil {
		s.logger.Error("failed to render activation code email", "error", err)
		return
	}
	s.notifier.QueueEmail(ctx, msg)
}

func (s *service) activationTTL() time.Duration {
	if s.config.Activation.CodeTTL > 0 {
		return s.config.Activation.CodeTTL
	}
	return 7 * 24 * time.Hour
}

func (s *service) ListActivationCodes(ctx context.Context, archived bool) ([]ActivationCode, error) {
	codes, err := s.repo.ListActivationCodes(ctx, archived)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return codes, nil
}

// CancelActivationCode fails when the code was already used or cancelled.
func (s *service) CancelActivationCode(ctx context.Context, id string) (*ActivationCode, error) {
	c, err := s.repo.FindActivationCodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrActivationCodeNotFound) {
			return nil, ErrActivationCodeNotFound
		}
		return nil, apperror.Internal(err)
	}
	if c.IsUsed {
		return nil, ErrActivationCodeUsed
	}
	if c.Cancelled {
		return nil, ErrActivationCodeCancelled
	}

	now := s.now()
	if err := s.repo.CancelActivationCode(ctx, id, now); err != nil {
		return nil, apperror.Internal(err)
	}
	c.Cancelled = true
	c.CancelledAt = &now
	return c, nil
}

func (s *service) ArchiveActivationCode(ctx context.Context, id string) error {
	if err := s.repo.ArchiveActivationCode(ctx, id); err != nil {
		if errors.Is(err, ErrActivationCodeNotFound) {
			return ErrActivationCodeNotFound
		}
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	return s.repo.PurgeExpired(ctx, now)
}
