package user

import (
	"context"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
)

// Repository defines the interface for database operations for the user module.
// This abstraction allows the service layer to be independent of the database implementation.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	ListActiveExcept(ctx context.Context, userID string) ([]User, error)
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)

	// Activation codes
	CreateActivationCode(ctx context.Context, code *ActivationCode) error
	FindActivationCode(ctx context.Context, code string) (*ActivationCode, error)
	FindActivationCodeByID(ctx context.Context, id string) (*ActivationCode, error)
	ListActivationCodes(ctx context.Context, archived bool) ([]ActivationCode, error)
	MarkActivationCodeUsed(ctx context.Context, id, userID string, at time.Time) error
	CancelActivationCode(ctx context.Context, id string, at time.Time) error
	ArchiveActivationCode(ctx context.Context, id string) error

	// Password reset tokens
	CreateResetToken(ctx context.Context, t *PasswordResetToken) error
	FindResetToken(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	DeleteResetTokensForUser(ctx context.Context, userID string) error

	// PurgeExpired deletes expired, unused activation codes and expired reset tokens.
	PurgeExpired(ctx context.Context, now time.Time) (codes, tokens int64, err error)
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new user repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}
