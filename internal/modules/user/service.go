package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/session"
)

// Service defines the interface for the user module's business logic.
// It orchestrates the flow of data between the handlers and the repository,
// and contains the core business rules.
type Service interface {
	// Auth-related methods
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, email, password string, meta LoginMeta) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error

	// Profile-related methods
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error

	// Password reset
	InitiatePasswordReset(ctx context.Context, email string) error
	FinalizePasswordReset(ctx context.Context, token, newPassword string) error

	// Activation codes (admin)
	CreateActivationCode(ctx context.Context, adminID, email string, role Role) (*ActivationCode, error)
	ListActivationCodes(ctx context.Context, archived bool) ([]ActivationCode, error)
	CancelActivationCode(ctx context.Context, id string) (*ActivationCode, error)
	ArchiveActivationCode(ctx context.Context, id string) error

	// Account administration
	ListUsers(ctx context.Context, f ListFilter) ([]User, int, error)
	GetUser(ctx context.Context, id string) (*User, error)
	AdminUpdateUser(ctx context.Context, id string, input AdminUpdateInput) (*User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
	ListRecipients(ctx context.Context, userID string) ([]User, error)

	// Directory lookups used by other modules
	AccountExists(ctx context.Context, email string) (bool, error)
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	IssueActivationCode(ctx context.Context, issuerID, email string, role Role) (*ActivationCode, error)

	PurgeExpired(ctx context.Context, now time.Time) (codes, tokens int64, err error)
}

// Notifier is the part of the notification port the user module uses.
type Notifier interface {
	QueueEmail(ctx context.Context, e notification.Email)
}

// service implements the Service interface.
type service struct {
	repo      Repository
	sessions  session.Provider
	notifier  Notifier
	templates *templates.Engine
	logger    *slog.Logger
	config    *config.Config
	now       func() time.Time
}

// Config holds the dependencies for the user service.
type Config struct {
	Repo      Repository
	Sessions  session.Provider
	Notifier  Notifier
	Templates *templates.Engine
	Logger    *slog.Logger
	Config    *config.Config
	Now       func() time.Time
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      cfg.Repo,
		sessions:  cfg.Sessions,
		notifier:  cfg.Notifier,
		templates: cfg.Templates,
		logger:    cfg.Logger,
		config:    cfg.Config,
		now:       now,
	}
}
