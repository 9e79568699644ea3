package contract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/realtime"
	"github.com/Jyok1m/ipseis-backend/internal/storage"
	"github.com/google/uuid"
)

// Service is the Contract State Machine. Every operation checks the role of
// the actor itself, whatever route it was reached through.
type Service interface {
	Create(ctx context.Context, actor Actor, in Input, pdf io.Reader) (*View, error)
	Update(ctx context.Context, actor Actor, id string, p Patch, pdf io.Reader) (*View, error)
	Send(ctx context.Context, actor Actor, id string) (*View, error)
	Sign(ctx context.Context, actor Actor, id string, ev Evidence) (*View, error)
	Reject(ctx context.Context, actor Actor, id string) (*View, error)
	Cancel(ctx context.Context, actor Actor, id string) (*View, error)
	Delete(ctx context.Context, actor Actor, id string) error

	Get(ctx context.Context, actor Actor, id string) (*View, error)
	// List returns every contract for administrators.
	List(ctx context.Context, actor Actor, status Status, page, limit int) ([]View, int, error)
	// ListMine returns the non-draft contracts addressed to the actor.
	ListMine(ctx context.Context, actor Actor, page, limit int) ([]View, int, error)
	// Document opens the attached PDF. The caller closes the reader.
	Document(ctx context.Context, actor Actor, id string) (io.ReadCloser, *View, error)
	// SignedTrainings lists the trainings userID holds a signed contract for.
	SignedTrainings(ctx context.Context, userID string) ([]string, error)
}

// Recipients resolves the user a contract is addressed to.
type Recipients interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type Trainings interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Files stores contract documents. *storage.Store satisfies it.
type Files interface {
	SavePDF(ctx context.Context, r io.Reader) (string, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
}

type Notifier interface {
	QueueEmail(ctx context.Context, e notification.Email)
	Push(ctx context.Context, channelKey, event string, payload any)
}

type service struct {
	repo      Repository
	users     Recipients
	trainings Trainings
	files     Files
	notifier  Notifier
	templates *templates.Engine
	logger    *slog.Logger
	config    *config.Config
	now       func() time.Time
}

type Config struct {
	Repo      Repository
	Users     Recipients
	Trainings Trainings
	Files     Files
	Notifier  Notifier
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
	return &service{
		repo:      cfg.Repo,
		users:     cfg.Users,
		trainings: cfg.Trainings,
		files:     cfg.Files,
		notifier:  cfg.Notifier,
		templates: cfg.Templates,
		logger:    cfg.Logger,
		config:    cfg.Config,
		now:       now,
	}
}

func (s *service) Create(ctx context.Context, actor Actor, in Input, pdf io.Reader) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	c := &Contract{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Amount:      in.Amount,
		Status:      StatusDraft,
		RecipientID: in.RecipientID,
		CreatedBy:   actor.UserID,
	}
	if in.LinkedTrainingID != "" {
		c.LinkedTrainingID = &in.LinkedTrainingID
	}
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	c.ID = id.String()
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	if pdf != nil {
		if c.PDFPath, err = s.savePDF(ctx, pdf); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.discard(c.PDFPath)
		s.logger.Error("failed to create contract", "error", err)
		return nil, apperror.Internal(err)
	}

	s.logger.Info("contract created", "contract_id", c.ID, "recipient_id", c.RecipientID)
	return s.view(ctx, c.ID)
}

// Update applies p to a draft. A new PDF replaces the previous one, which is
// removed once the update is stored.
func (s *service) Update(ctx context.Context, actor Actor, id string, p Patch, pdf io.Reader) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDraft {
		return nil, ErrNotDraft
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) != "" {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.RecipientID != nil && *p.RecipientID != "" {
		c.RecipientID = *p.RecipientID
	}
	if p.LinkedTrainingID != nil {
		c.LinkedTrainingID = nil
		if *p.LinkedTrainingID != "" {
			c.LinkedTrainingID = p.LinkedTrainingID
		}
	}
	if p.StartDate != nil {
		c.StartDate = clearable(p.StartDate)
	}
	if p.EndDate != nil {
		c.EndDate = clearable(p.EndDate)
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}

	previous := c.PDFPath
	if pdf != nil {
		if c.PDFPath, err = s.savePDF(ctx, pdf); err != nil {
			return nil, err
		}
	}
	c.UpdatedAt = s.now()

	if err := s.repo.UpdateDraft(ctx, c); err != nil {
		if c.PDFPath != previous {
			s.discard(c.PDFPath)
		}
		if errors.Is(err, errStale) {
			return nil, ErrNotDraft
		}
		s.logger.Error("failed to update contract", "contract_id", id, "error", err)
		return nil, apperror.Internal(err)
	}
	if c.PDFPath != previous {
		s.discard(previous)
	}
	return s.view(ctx, c.ID)
}

// Send moves a draft to sent and emails the recipient. A failed email does
// not undo the transition.
func (s *service) Send(ctx context.Context, actor Actor, id string) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, c, StatusSent, nil); err != nil {
		return nil, err
	}

	v, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emailRecipient(ctx, v)
	s.push(ctx, v)
	return v, nil
}

func (s *service) Sign(ctx context.Context, actor Actor, id string, ev Evidence) (*View, error) {
	c, err := s.addressedTo(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.transition(ctx, c, StatusSigned, map[string]any{
		"signed_at":         s.now(),
		"signed_ip":         ev.IP,
		"signed_user_agent": ev.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("contract signed", "contract_id", id, "user_id", actor.UserID, "ip", ev.IP)
	return s.changed(ctx, id)
}

func (s *service) Reject(ctx context.Context, actor Actor, id string) (*View, error) {
	c, err := s.addressedTo(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, c, StatusRejected, map[string]any{"rejected_at": s.now()}); err != nil {
		return nil, err
	}
	s.logger.Info("contract rejected", "contract_id", id, "user_id", actor.UserID)
	return s.changed(ctx, id)
}

func (s *service) Cancel(ctx context.Context, actor Actor, id string) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	from := c.Status
	if err := s.transition(ctx, c, StatusCancelled, map[string]any{"cancelled_at": s.now()}); err != nil {
		return nil, err
	}
	if from == StatusDraft {
		return s.view(ctx, id)
	}
	return s.changed(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusDraft {
		return ErrNotDraft
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, errStale) {
			return ErrNotDraft
		}
		s.logger.Error("failed to delete contract", "contract_id", id, "error", err)
		return apperror.Internal(err)
	}
	s.discard(c.PDFPath)
	s.logger.Info("contract deleted", "contract_id", id)
	return nil
}

// Get returns any contract to an administrator. Recipients only see their
// own contracts once sent; anything else is reported as not found.
func (s *service) Get(ctx context.Context, actor Actor, id string) (*View, error) {
	v, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !visibleTo(v, actor) {
		return nil, ErrContractNotFound
	}
	return v, nil
}

func (s *service) List(ctx context.Context, actor Actor, status Status, page, limit int) ([]View, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrAdminOnly
	}
	return s.list(ctx, ListFilter{Status: status}, page, limit)
}

func (s *service) ListMine(ctx context.Context, actor Actor, page, limit int) ([]View, int, error) {
	return s.list(ctx, ListFilter{RecipientID: actor.UserID, ExcludeDraft: true}, page, limit)
}

func (s *service) list(ctx context.Context, f ListFilter, page, limit int) ([]View, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	f.Limit = uint64(limit)
	f.Offset = uint64((page - 1) * limit)
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to list contracts", "error", err)
		return nil, 0, apperror.Internal(err)
	}
	return rows, total, nil
}

// Document is available to administrators and to the recipient of a
// non-draft contract.
func (s *service) Document(ctx context.Context, actor Actor, id string) (io.ReadCloser, *View, error) {
	v, err := s.view(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin() && !visibleTo(v, actor) {
		return nil, nil, ErrAccessDenied
	}
	if v.PDFPath == "" {
		return nil, nil, ErrNoDocument
	}
	rc, err := s.files.Open(v.PDFPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("contract document missing from storage", "contract_id", id, "file", v.PDFPath)
			return nil, nil, ErrNoDocument
		}
		return nil, nil, apperror.Internal(err)
	}
	return rc, v, nil
}

func (s *service) SignedTrainings(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.SignedTrainingIDs(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list signed trainings", "user_id", userID, "error", err)
		return nil, apperror.Internal(err)
	}
	return ids, nil
}

func visibleTo(v *View, actor Actor) bool {
	return v.RecipientID == actor.UserID && v.Status != StatusDraft
}

// addressedTo loads a contract for a recipient-only action. The state check
// is left to transition so a draft answers with ErrInvalidTransition.
func (s *service) addressedTo(ctx context.Context, actor Actor, id string) (*Contract, error) {
	if actor.IsAdmin() {
		return nil, ErrAdminCannotSign
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.RecipientID != actor.UserID {
		return nil, ErrContractNotFound
	}
	return c, nil
}

// transition writes the new status only if the stored status is still the
// one c was loaded with.
func (s *service) transition(ctx context.Context, c *Contract, to Status, set map[string]any) error {
	if !c.Status.CanTransition(to) {
		return ErrInvalidTransition
	}
	if set == nil {
		set = map[string]any{}
	}
	set["updated_at"] = s.now()
	if err := s.repo.Transition(ctx, c.ID, c.Status, to, set); err != nil {
		if errors.Is(err, errStale) {
			return ErrInvalidTransition
		}
		s.logger.Error("failed to change contract status", "contract_id", c.ID, "from", c.Status, "to", to, "error", err)
		return apperror.Internal(err)
	}
	s.logger.Info("contract status changed", "contract_id", c.ID, "from", c.Status, "to", to)
	c.Status = to
	return nil
}

func (s *service) changed(ctx context.Context, id string) (*View, error) {
	v, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	s.push(ctx, v)
	return v, nil
}

func (s *service) push(ctx context.Context, v *View) {
	s.notifier.Push(ctx, realtime.UserChannel(v.RecipientID), EventUpdated, v.DTO())
}

func (s *service) emailRecipient(ctx context.Context, v *View) {
	email, err := notification.Compose(ctx, s.templates, templates.ContractSent, v.Recipient.Email, templates.ContractSentData{
		RecipientFirstName: v.Recipient.FirstName,
		Title:              v.Title,
		Amount:             formatAmount(v.Amount),
		ContractsURL:       s.config.Server.FrontendURL + "/espace-personnel",
	})
	if err != nil {
		s.logger.Error("failed to render contract email", "contract_id", v.ID, "error", err)
		return
	}
	s.notifier.QueueEmail(ctx, email)
}

// formatAmount renders 1250.5 as "1250,50". Zero renders empty.
func formatAmount(a float64) string {
	if a == 0 {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(a, 'f', 2, 64), ".", ",", 1)
}

func (s *service) validate(ctx context.Context, c *Contract) error {
	if c.Title == "" {
		return ErrTitleRequired
	}
	if c.Amount < 0 {
		return ErrInvalidAmount
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return ErrInvalidDates
	}

	if c.RecipientID == "" {
		return ErrRecipientRequired
	}
	if uuid.Validate(c.RecipientID) != nil {
		return ErrRecipientNotFound
	}
	if _, err := s.users.GetUser(ctx, c.RecipientID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrRecipientNotFound
		}
		s.logger.Error("failed to load contract recipient", "recipient_id", c.RecipientID, "error", err)
		return apperror.Internal(err)
	}

	if c.LinkedTrainingID != nil {
		if uuid.Validate(*c.LinkedTrainingID) != nil {
			return ErrTrainingNotFound
		}
		ok, err := s.trainings.Exists(ctx, *c.LinkedTrainingID)
		if err != nil {
			s.logger.Error("failed to check linked training", "training_id", *c.LinkedTrainingID, "error", err)
			return apperror.Internal(err)
		}
		if !ok {
			return ErrTrainingNotFound
		}
	}
	return nil
}

func (s *service) savePDF(ctx context.Context, r io.Reader) (string, error) {
	name, err := s.files.SavePDF(ctx, r)
	switch {
	case err == nil:
		return name, nil
	case errors.Is(err, storage.ErrNotPDF):
		return "", ErrInvalidPDF
	case errors.Is(err, storage.ErrTooLarge):
		return "", ErrPDFTooLarge
	default:
		s.logger.Error("failed to store contract document", "error", err)
		return "", apperror.Internal(err)
	}
}

func (s *service) discard(name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(name); err != nil {
		s.logger.Warn("failed to delete contract document", "file", name, "error", err)
	}
}

func (s *service) find(ctx context.Context, id string) (*Contract, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrContractNotFound
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrContractNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, apperror.Internal(err)
	}
	return c, nil
}

func (s *service) view(ctx context.Context, id string) (*View, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrContractNotFound
	}
	v, err := s.repo.FindView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrContractNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, apperror.Internal(err)
	}
	return v, nil
}

func clearable(t *time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return t
}
