package user

import (
	"context"
	"errors"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
)

// AdminUpdateInput extends the profile fields with role and status.
type AdminUpdateInput struct {
	UpdateProfileInput
	Role     *Role
	IsActive *bool
}

func (s *service) ListUsers(ctx context.Context, f ListFilter) ([]User, int, error) {
	users, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return users, total, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.GetProfile(ctx, id)
}

// AdminUpdateUser edits any account. Deactivating an account revokes its sessions.
func (s *service) AdminUpdateUser(ctx context.Context, id string, in AdminUpdateInput) (*User, error) {
	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(user)
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, ErrInvalidRole.WithDetail("role must be administrateur, apprenant or professionnel")
		}
		user.Role = *in.Role
	}
	deactivated := false
	if in.IsActive != nil {
		deactivated = user.IsActive && !*in.IsActive
		user.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperror.Internal(err)
	}
	if deactivated {
		if err := s.sessions.DeleteForUser(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", "user_id", id, "error", err)
		}
	}

	s.logger.Info("user updated by admin", "user_id", id)
	return user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves, and users
// referenced by contracts or messages are kept.
func (s *service) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ErrNotFound
		case errors.Is(err, ErrUserReferenced):
			return ErrUserReferenced
		}
		return apperror.Internal(err)
	}
	s.logger.Info("user deleted", "user_id", id, "by", actorID)
	return nil
}

func (s *service) ListRecipients(ctx context.Context, userID string) ([]User, error) {
	users, err := s.repo.ListActiveExcept(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

func (s *service) AccountExists(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, apperror.Internal(err)
}

func (s *service) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	found, err := s.repo.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return found, nil
}
