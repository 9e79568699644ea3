package user

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/google/uuid"
)

const resetTokenTTL = time.Hour

// InitiatePasswordReset stores the hash of a fresh reset token and emails the
// raw token as a link. Unknown emails succeed silently.
func (s *service) InitiatePasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("password reset requested for non-existent email")
			return nil
		}
		s.logger.Error("failed to find user by email for password reset", "error", err)
		return apperror.Internal(err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return apperror.Internal(err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return apperror.Internal(err)
	}

	err = s.repo.CreateResetToken(ctx, &PasswordResetToken{
		ID:        id.String(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(resetTokenTTL),
	})
	if err != nil {
		s.logger.Error("failed to store password reset token", "error", err)
		return apperror.Internal(err)
	}

	resetURL := s.config.Server.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	msg, err := notification.Compose(ctx, s.templates, templates.PasswordReset, user.Email, templates.PasswordResetData{
		FirstName:    user.FirstName,
		ResetURL:     resetURL,
		SupportEmail: s.config.Mail.SupportEmail,
	})
	if err != nil {
		s.logger.Error("failed to render password reset email", "error", err)
		return nil
	}
	s.notifier.QueueEmail(ctx, msg)
	return nil
}

// FinalizePasswordReset validates a reset token, sets the new password and
// revokes every session of the user.
func (s *service) FinalizePasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	t, err := s.repo.FindResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return ErrInvalidResetToken
		}
		s.logger.Error("failed to find password reset token", "error", err)
		return apperror.Internal(err)
	}
	if !s.now().Before(t.ExpiresAt) {
		return ErrInvalidResetToken
	}

	if err := s.setPassword(ctx, t.UserID, newPassword); err != nil {
		return err
	}
	if err := s.repo.DeleteResetTokensForUser(ctx, t.UserID); err != nil {
		s.logger.Warn("failed to delete consumed reset tokens", "user_id", t.UserID, "error", err)
	}

	s.logger.Info("user password has been reset successfully", "user_id", t.UserID)
	return nil
}

// ChangePassword checks the current password, stores the new one and signs
// the user out everywhere.
func (s *service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return apperror.Internal(err)
	}
	if !checkPasswordHash(current, user.PasswordHash) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, userID, next)
}

func (s *service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("failed to update user password", "user_id", userID, "error", err)
		return apperror.Internal(err)
	}
	if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", "user_id", userID, "error", err)
	}
	return nil
}
