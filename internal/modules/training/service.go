package training

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/google/uuid"
)

// Service is the catalogue's business logic.
type Service interface {
	// Catalogue returns every theme with its trainings. Hidden trainings are
	// left out unless includeHidden is set.
	Catalogue(ctx context.Context, includeHidden bool) ([]Theme, error)
	ListTrainings(ctx context.Context) ([]Training, error)
	GetTraining(ctx context.Context, id string, includeHidden bool) (*Training, error)
	CreateTraining(ctx context.Context, themeID string, c Content, visible bool) (*Training, error)
	UpdateTraining(ctx context.Context, id string, themeID *string, c Content) (*Training, error)
	SetVisibility(ctx context.Context, id string, visible bool) (*Training, error)
	DeleteTraining(ctx context.Context, id string) error

	CreateTheme(ctx context.Context, title, kind string) (*Theme, error)
	DeleteTheme(ctx context.Context, id string) error

	// Exists reports whether a training with id exists, visible or not.
	Exists(ctx context.Context, id string) (bool, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

// Config holds the dependencies of the training service.
type Config struct {
	Repo   Repository
	Logger *slog.Logger
}

// NewService creates the training service.
func NewService(cfg *Config) Service {
	return &service{repo: cfg.Repo, logger: cfg.Logger}
}

func (s *service) Catalogue(ctx context.Context, includeHidden bool) ([]Theme, error) {
	themes, err := s.repo.ListThemes(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	trainings, err := s.repo.ListTrainings(ctx, !includeHidden)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	byTheme := make(map[string][]Training, len(themes))
	for _, t := range trainings {
		if t.ThemeID != nil {
			byTheme[*t.ThemeID] = append(byTheme[*t.ThemeID], t)
		}
	}
	for i := range themes {
		themes[i].Trainings = byTheme[themes[i].ID]
		if themes[i].Trainings == nil {
			themes[i].Trainings = []Training{}
		}
	}
	return themes, nil
}

func (s *service) ListTrainings(ctx context.Context) ([]Training, error) {
	trainings, err := s.repo.ListTrainings(ctx, false)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return trainings, nil
}

// GetTraining hides invisible trainings from public callers as not found.
func (s *service) GetTraining(ctx context.Context, id string, includeHidden bool) (*Training, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsVisible && !includeHidden {
		return nil, ErrTrainingNotFound
	}
	return t, nil
}

func (s *service) find(ctx context.Context, id string) (*Training, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrTrainingNotFound
	}
	t, err := s.repo.FindTraining(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			return nil, ErrTrainingNotFound
		}
		return nil, apperror.Internal(err)
	}
	return t, nil
}

func (s *service) requireTheme(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrThemeNotFound
	}
	if _, err := s.repo.FindTheme(ctx, id); err != nil {
		if errors.Is(err, ErrThemeNotFound) {
			return ErrThemeNotFound
		}
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) CreateTraining(ctx context.Context, themeID string, c Content, visible bool) (*Training, error) {
	if err := s.requireTheme(ctx, themeID); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	t := &Training{ID: id.String(), IsVisible: visible}
	c.applyTo(t)

	if err := s.repo.CreateTraining(ctx, t); err != nil {
		s.logger.Error("failed to create training", "error", err)
		return nil, apperror.Internal(err)
	}
	if err := s.repo.AssignTheme(ctx, t.ID, themeID); err != nil {
		s.logger.Error("failed to attach training to theme", "training_id", t.ID, "theme_id", themeID, "error", err)
		return nil, apperror.Internal(err)
	}
	s.logger.Info("training created", "training_id", t.ID, "theme_id", themeID)
	return s.find(ctx, t.ID)
}

// UpdateTraining replaces the content and, when themeID is set and differs,
// moves the training to the end of that theme.
func (s *service) UpdateTraining(ctx context.Context, id string, themeID *string, c Content) (*Training, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	move := themeID != nil && (t.ThemeID == nil || *t.ThemeID != *themeID)
	if move {
		if err := s.requireTheme(ctx, *themeID); err != nil {
			return nil, err
		}
	}

	c.applyTo(t)
	if err := s.repo.UpdateTraining(ctx, t); err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			return nil, ErrTrainingNotFound
		}
		return nil, apperror.Internal(err)
	}
	if move {
		if err := s.repo.AssignTheme(ctx, id, *themeID); err != nil {
			return nil, apperror.Internal(err)
		}
	}
	return s.find(ctx, id)
}

func (s *service) SetVisibility(ctx context.Context, id string, visible bool) (*Training, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetVisibility(ctx, id, visible); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.find(ctx, id)
}

func (s *service) DeleteTraining(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrTrainingNotFound
	}
	if err := s.repo.DeleteTraining(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrTrainingNotFound):
			return ErrTrainingNotFound
		case errors.Is(err, ErrTrainingInUse):
			return ErrTrainingInUse
		}
		return apperror.Internal(err)
	}
	s.logger.Info("training deleted", "training_id", id)
	return nil
}

func (s *service) CreateTheme(ctx context.Context, title, kind string) (*Theme, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	th := &Theme{ID: id.String(), Title: title, Type: kind, Trainings: []Training{}}
	if err := s.repo.CreateTheme(ctx, th); err != nil {
		return nil, apperror.Internal(err)
	}
	return th, nil
}

// DeleteTheme only removes themes without trainings.
func (s *service) DeleteTheme(ctx context.Context, id string) error {
	if err := s.requireTheme(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountThemeTrainings(ctx, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if n > 0 {
		return ErrThemeNotEmpty
	}
	if err := s.repo.DeleteTheme(ctx, id); err != nil {
		if errors.Is(err, ErrThemeNotFound) {
			return ErrThemeNotFound
		}
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.find(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrTrainingNotFound) {
		return false, nil
	}
	return false, err
}
