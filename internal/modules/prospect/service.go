package prospect

import (
	"context"
	"log/slog"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
)

// recentInteractions is how many interactions each row of the admin list carries.
const recentInteractions = 5

// Service is the Prospect Ledger and the public lead capture flows built on it.
type Service interface {
	// Ledger
	RecordInteraction(ctx context.Context, in RecordInput) (*Prospect, *Interaction, error)
	ReconcileWithAccounts(ctx context.Context, prospects []Prospect) (map[string]bool, error)
	TransitionStatus(ctx context.Context, id string, status Status) (*Prospect, error)
	Convert(ctx context.Context, adminID, id string, role user.Role) (*Conversion, error)

	// Public capture
	SubmitContactForm(ctx context.Context, form ContactForm, meta Meta) (*ContactMessage, error)
	RequestCatalogue(ctx context.Context, req CatalogueRequest, meta Meta) error

	// Administration
	List(ctx context.Context, f ListFilter) ([]Listed, int, error)
	Get(ctx context.Context, id string) (*Detail, error)
	Contact(ctx context.Context, id, subject, message string) (*Prospect, error)
	ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset uint64) ([]ContactMessage, int, error)
	MarkContactMessageRead(ctx context.Context, id string) error
}

// Accounts is the part of the identity store the ledger depends on.
type Accounts interface {
	AccountExists(ctx context.Context, email string) (bool, error)
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	IssueActivationCode(ctx context.Context, issuerID, email string, role user.Role) (*user.ActivationCode, error)
}

// Mailer sends synchronously when the email is the purpose of the request and
// queues otherwise.
type Mailer interface {
	SendEmail(ctx context.Context, e notification.Email) error
	QueueEmail(ctx context.Context, e notification.Email)
}

// RecordInput is one public or administrative touch point.
type RecordInput struct {
	Email     string
	FirstName string
	LastName  string
	Channel   InteractionType
	Data      map[string]any
	Meta      Meta
}

// Listed is a row of the admin prospect list.
type Listed struct {
	Prospect
	HasAccount   bool
	Interactions []Interaction
}

// Detail is a prospect with its full history.
type Detail struct {
	Prospect
	HasAccount   bool
	Interactions []Interaction
}

// Conversion is the result of converting a prospect into an invitation.
type Conversion struct {
	Prospect *Prospect
	Code     *user.ActivationCode
}

type service struct {
	repo      Repository
	accounts  Accounts
	mailer    Mailer
	templates *templates.Engine
	logger    *slog.Logger
	config    *config.Config
	now       func() time.Time
	loc       *time.Location
}

type Config struct {
	Repo      Repository
	Accounts  Accounts
	Mailer    Mailer
	Templates *templates.Engine
	Logger    *slog.Logger
	Config    *config.Config
	Now       func() time.Time
}

func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	return &service{
		repo:      cfg.Repo,
		accounts:  cfg.Accounts,
		mailer:    cfg.Mailer,
		templates: cfg.Templates,
		logger:    cfg.Logger,
		config:    cfg.Config,
		now:       now,
		loc:       loc,
	}
}
