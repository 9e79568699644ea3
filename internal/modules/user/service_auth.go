package user

import (
	"context"
	"errors"
	"strings"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/authtoken"
	"github.com/google/uuid"
)

// RegisterInput is the self-registration form.
type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	Phone          string
	Company        string
	Position       string
	Address        string
	ActivationCode string
}

// LoginMeta is recorded on the session row.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is a signed token and the user it identifies.
type LoginResult struct {
	Token string
	User  *User
}

// Register redeems an activation code and creates the account with the code's role.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := normalizeEmail(in.Email)

	code, err := s.repo.FindActivationCode(ctx, strings.ToUpper(strings.TrimSpace(in.ActivationCode)))
	if err != nil {
		if errors.Is(err, ErrInvalidActivationCode) {
			return nil, ErrInvalidActivationCode
		}
		return nil, apperror.Internal(err)
	}
	now := s.now()
	if code.IsUsed || code.Cancelled || !now.Before(code.ExpiresAt) {
		return nil, ErrInvalidActivationCode
	}
	if !code.Redeemable(email, now) {
		return nil, ErrActivationEmailMismatch
	}

	// Check if a user with the given email already exists
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, apperror.Internal(err)
	}

	newUserID, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	newUser := &User{
		ID:                 newUserID.String(),
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Email:              email,
		PasswordHash:       hashedPassword,
		Phone:              in.Phone,
		Company:            in.Company,
		Position:           in.Position,
		Address:            in.Address,
		Role:               code.Role,
		IsActive:           true,
		ActivationCodeUsed: &code.Code,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		s.logger.Error("failed to create user", "error", err)
		return nil, apperror.Internal(err)
	}

	if err := s.repo.MarkActivationCodeUsed(ctx, code.ID, newUser.ID, now); err != nil {
		// The account exists; a code left unmarked is purged when it expires.
		s.logger.Error("failed to mark activation code used", "code_id", code.ID, "user_id", newUser.ID, "error", err)
	}

	s.logger.Info("user registered successfully", "user_id", newUser.ID, "role", newUser.Role)
	return newUser, nil
}

// Login handles the business logic for authenticating a user.
func (s *service) Login(ctx context.Context, email, password string, meta LoginMeta) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Use a generic error to avoid telling attackers that the email exists.
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to find user by email", "error", err)
		return nil, apperror.Internal(err)
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	sid, err := s.sessions.Create(ctx, user.ID, meta.UserAgent, meta.IP)
	if err != nil {
		s.logger.Error("failed to create session", "user_id", user.ID, "error", err)
		return nil, apperror.Internal(err)
	}

	token, err := authtoken.Issue(s.config.JWT.Secret, s.config.JWT.TTL, s.now(), authtoken.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sid,
	})
	if err != nil {
		s.logger.Error("failed to generate JWT", "error", err)
		return nil, apperror.Internal(err)
	}

	s.logger.Info("user logged in successfully", "user_id", user.ID)
	return &LoginResult{Token: token, User: user}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
