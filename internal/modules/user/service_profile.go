package user

import (
	"context"
	"errors"
	"strings"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
)

// UpdateProfileInput defines the updatable fields for a user's profile.
// Using pointers allows us to distinguish between a field not being provided (nil)
// and a field being set to its zero value (e.g., an empty string).
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string
	Position  *string
	Address   *string
}

func (in UpdateProfileInput) apply(u *User) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.FirstName, in.FirstName)
	set(&u.LastName, in.LastName)
	set(&u.Phone, in.Phone)
	set(&u.Company, in.Company)
	set(&u.Position, in.Position)
	set(&u.Address, in.Address)
}

// GetProfile retrieves a single user's profile by their ID.
func (s *service) GetProfile(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithCause(err)
		}
		s.logger.Error("failed to get user profile from repository", "error", err, "user_id", userID)
		return nil, apperror.Internal(err)
	}
	return user, nil
}

// UpdateProfile updates a user's own profile information. Role, email and
// status are not editable here.
func (s *service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	input.apply(user)

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user profile in repository", "error", err, "user_id", userID)
		return nil, apperror.Internal(err)
	}

	s.logger.Info("user profile updated successfully", "user_id", user.ID)
	return user, nil
}
