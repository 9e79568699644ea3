package resource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/storage"
	"github.com/google/uuid"
)

// Service manages the PDF library attached to trainings. Learners only reach
// the resources of trainings they signed a contract for.
type Service interface {
	Create(ctx context.Context, actor Actor, in Input, pdf *Upload) (*View, error)
	Update(ctx context.Context, actor Actor, id string, p Patch, pdf *Upload) (*View, error)
	Delete(ctx context.Context, actor Actor, id string) error
	List(ctx context.Context, actor Actor, trainingID string, page, limit int) ([]View, int, error)
	// ListMine returns the resources of the actor's signed trainings that
	// target the actor's role.
	ListMine(ctx context.Context, actor Actor) ([]View, error)
	// Document opens the PDF of a resource. The caller closes the reader.
	Document(ctx context.Context, actor Actor, id string) (io.ReadCloser, *Resource, error)
}

type Trainings interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Enrolments lists the trainings a user holds a signed contract for.
type Enrolments interface {
	SignedTrainings(ctx context.Context, userID string) ([]string, error)
}

// Files stores resource documents. *storage.Store satisfies it.
type Files interface {
	SavePDF(ctx context.Context, r io.Reader) (string, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
}

type service struct {
	repo       Repository
	trainings  Trainings
	enrolments Enrolments
	files      Files
	logger     *slog.Logger
	now        func() time.Time
}

type Config struct {
	Repo       Repository
	Trainings  Trainings
	Enrolments Enrolments
	Files      Files
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       cfg.Repo,
		trainings:  cfg.Trainings,
		enrolments: cfg.Enrolments,
		files:      cfg.Files,
		logger:     cfg.Logger,
		now:        now,
	}
}

func (s *service) Create(ctx context.Context, actor Actor, in Input, pdf *Upload) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || in.LinkedTrainingID == "" {
		return nil, ErrTitleRequired
	}
	if pdf == nil {
		return nil, ErrPDFRequired
	}
	roles, err := audience(in.TargetRoles)
	if err != nil {
		return nil, err
	}
	if err := s.checkTraining(ctx, in.LinkedTrainingID); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := s.now()
	author := actor.UserID
	res := &Resource{
		ID:               id.String(),
		Title:            title,
		Description:      in.Description,
		LinkedTrainingID: in.LinkedTrainingID,
		TargetRoles:      roles,
		CreatedBy:        &author,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if res.PDFPath, err = s.savePDF(ctx, pdf.File); err != nil {
		return nil, err
	}
	res.OriginalFileName = pdf.Filename

	if err := s.repo.Create(ctx, res); err != nil {
		s.discard(res.PDFPath)
		if errors.Is(err, ErrTrainingNotFound) {
			return nil, ErrTrainingNotFound
		}
		s.logger.Error("failed to create resource", "error", err)
		return nil, apperror.Internal(err)
	}
	s.logger.Info("resource created", "resource_id", res.ID, "training_id", res.LinkedTrainingID)
	return s.view(ctx, res.ID)
}

// Update applies p. A new PDF replaces the previous one, which is removed
// once the update is stored.
func (s *service) Update(ctx context.Context, actor Actor, id string, p Patch, pdf *Upload) (*View, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	res, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) != "" {
		res.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		res.Description = *p.Description
	}
	if p.LinkedTrainingID != nil && *p.LinkedTrainingID != "" {
		if err := s.checkTraining(ctx, *p.LinkedTrainingID); err != nil {
			return nil, err
		}
		res.LinkedTrainingID = *p.LinkedTrainingID
	}
	if p.SetTargetRoles {
		if res.TargetRoles, err = audience(p.TargetRoles); err != nil {
			return nil, err
		}
	}

	previous := res.PDFPath
	if pdf != nil {
		if res.PDFPath, err = s.savePDF(ctx, pdf.File); err != nil {
			return nil, err
		}
		res.OriginalFileName = pdf.Filename
	}
	res.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, res); err != nil {
		if res.PDFPath != previous {
			s.discard(res.PDFPath)
		}
		switch {
		case errors.Is(err, ErrResourceNotFound):
			return nil, ErrResourceNotFound
		case errors.Is(err, ErrTrainingNotFound):
			return nil, ErrTrainingNotFound
		}
		s.logger.Error("failed to update resource", "resource_id", id, "error", err)
		return nil, apperror.Internal(err)
	}
	if res.PDFPath != previous {
		s.discard(previous)
	}
	return s.view(ctx, res.ID)
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	res, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		s.logger.Error("failed to delete resource", "resource_id", id, "error", err)
		return apperror.Internal(err)
	}
	s.discard(res.PDFPath)
	s.logger.Info("resource deleted", "resource_id", id)
	return nil
}

func (s *service) List(ctx context.Context, actor Actor, trainingID string, page, limit int) ([]View, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrAdminOnly
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if trainingID != "" && uuid.Validate(trainingID) != nil {
		return []View{}, 0, nil
	}
	f := ListFilter{TrainingID: trainingID, Limit: uint64(limit), Offset: uint64((page - 1) * limit)}
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to list resources", "error", err)
		return nil, 0, apperror.Internal(err)
	}
	return rows, total, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor) ([]View, error) {
	ids, err := s.enrolments.SignedTrainings(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []View{}, nil
	}
	rows, _, err := s.repo.List(ctx, ListFilter{TrainingIDs: ids, Role: actor.Role})
	if err != nil {
		s.logger.Error("failed to list resources", "user_id", actor.UserID, "error", err)
		return nil, apperror.Internal(err)
	}
	return rows, nil
}

// Document is available to administrators, and to users who signed a
// contract for the linked training and whose role is targeted.
func (s *service) Document(ctx context.Context, actor Actor, id string) (io.ReadCloser, *Resource, error) {
	res, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin() {
		ids, err := s.enrolments.SignedTrainings(ctx, actor.UserID)
		if err != nil {
			return nil, nil, err
		}
		if !slices.Contains(ids, res.LinkedTrainingID) || !res.OfferedTo(actor.Role) {
			return nil, nil, ErrAccessDenied
		}
	}
	if res.PDFPath == "" {
		return nil, nil, ErrNoDocument
	}
	rc, err := s.files.Open(res.PDFPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("resource document missing from storage", "resource_id", id, "file", res.PDFPath)
			return nil, nil, ErrNoDocument
		}
		return nil, nil, apperror.Internal(err)
	}
	return rc, res, nil
}

// audience normalizes target roles. Duplicates are dropped and any role
// other than the learner roles is rejected.
func audience(roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || slices.Contains(out, r) {
			continue
		}
		if !slices.ContainsFunc(Audiences, func(a user.Role) bool { return string(a) == r }) {
			return nil, ErrInvalidAudience
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *service) checkTraining(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrTrainingNotFound
	}
	ok, err := s.trainings.Exists(ctx, id)
	if err != nil {
		s.logger.Error("failed to check linked training", "training_id", id, "error", err)
		return apperror.Internal(err)
	}
	if !ok {
		return ErrTrainingNotFound
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
		s.logger.Error("failed to store resource document", "error", err)
		return "", apperror.Internal(err)
	}
}

func (s *service) discard(name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(name); err != nil {
		s.logger.Warn("failed to delete resource document", "file", name, "error", err)
	}
}

func (s *service) find(ctx context.Context, id string) (*Resource, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrResourceNotFound
	}
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, apperror.Internal(err)
	}
	return res, nil
}

func (s *service) view(ctx context.Context, id string) (*View, error) {
	v, err := s.repo.FindView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, apperror.Internal(err)
	}
	return v, nil
}
