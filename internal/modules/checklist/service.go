package checklist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/google/uuid"
)

// Service keeps the administrators' follow-up checklists. Routes are
// restricted to administrators.
type Service interface {
	List(ctx context.Context, page, limit int) ([]View, int, error)
	Get(ctx context.Context, id string) (*View, error)
	Create(ctx context.Context, authorID string, in Input) (*View, error)
	// Replace overwrites every field and item of the checklist.
	Replace(ctx context.Context, id string, in Input) (*View, error)
	UpdateItem(ctx context.Context, id, itemID string, p ItemPatch) (*View, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

type Config struct {
	Repo   Repository
	Logger *slog.Logger
	Now    func() time.Time
}

func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: cfg.Repo, logger: cfg.Logger, now: now}
}

func (s *service) List(ctx context.Context, page, limit int) ([]View, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	rows, total, err := s.repo.List(ctx, uint64(limit), uint64((page-1)*limit))
	if err != nil {
		s.logger.Error("failed to list checklists", "error", err)
		return nil, 0, apperror.Internal(err)
	}
	return rows, total, nil
}

func (s *service) Get(ctx context.Context, id string) (*View, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrChecklistNotFound
	}
	v, err := s.repo.FindView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChecklistNotFound) {
			return nil, ErrChecklistNotFound
		}
		return nil, apperror.Internal(err)
	}
	return v, nil
}

func (s *service) Create(ctx context.Context, authorID string, in Input) (*View, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := s.now()
	c := &Checklist{ID: id.String(), CreatedBy: &authorID, CreatedAt: now, UpdatedAt: now}
	items, err := s.fill(c, in, nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c, items); err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		s.logger.Error("failed to create checklist", "error", err)
		return nil, apperror.Internal(err)
	}
	s.logger.Info("checklist created", "checklist_id", c.ID, "items", len(items))
	return s.Get(ctx, c.ID)
}

func (s *service) Replace(ctx context.Context, id string, in Input) (*View, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := current.Checklist
	c.UpdatedAt = s.now()
	items, err := s.fill(&c, in, current.Items)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, &c, items); err != nil {
		switch {
		case errors.Is(err, ErrChecklistNotFound):
			return nil, ErrChecklistNotFound
		case errors.Is(err, ErrLinkNotFound):
			return nil, ErrLinkNotFound
		}
		s.logger.Error("failed to update checklist", "checklist_id", id, "error", err)
		return nil, apperror.Internal(err)
	}
	return s.Get(ctx, id)
}

func (s *service) UpdateItem(ctx context.Context, id, itemID string, p ItemPatch) (*View, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrChecklistNotFound
	}
	if uuid.Validate(itemID) != nil {
		return nil, ErrItemNotFound
	}
	if err := s.repo.UpdateItem(ctx, id, itemID, p, s.now()); err != nil {
		switch {
		case errors.Is(err, ErrChecklistNotFound):
			return nil, ErrChecklistNotFound
		case errors.Is(err, ErrItemNotFound):
			return nil, ErrItemNotFound
		}
		s.logger.Error("failed to update checklist item", "checklist_id", id, "item_id", itemID, "error", err)
		return nil, apperror.Internal(err)
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return ErrChecklistNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrChecklistNotFound) {
			return ErrChecklistNotFound
		}
		s.logger.Error("failed to delete checklist", "checklist_id", id, "error", err)
		return apperror.Internal(err)
	}
	s.logger.Info("checklist deleted", "checklist_id", id)
	return nil
}

// fill copies in onto c and builds its items. An item keeps its id when it
// names one of existing, otherwise it gets a new one.
func (s *service) fill(c *Checklist, in Input, existing []Item) ([]Item, error) {
	c.Title = strings.TrimSpace(in.Title)
	if c.Title == "" {
		return nil, ErrTitleRequired
	}
	c.Description = in.Description

	var err error
	if c.LinkedUserID, err = link(in.LinkedUserID); err != nil {
		return nil, err
	}
	if c.LinkedProspectID, err = link(in.LinkedProspectID); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.ID] = true
	}
	items := make([]Item, 0, len(in.Items))
	for i, it := range in.Items {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			return nil, ErrItemTextRequired
		}
		id := it.ID
		if !known[id] {
			v7, err := uuid.NewV7()
			if err != nil {
				return nil, apperror.Internal(err)
			}
			id = v7.String()
		}
		delete(known, id)
		items = append(items, Item{
			ID:          id,
			ChecklistID: c.ID,
			Position:    i,
			Text:        text,
			IsChecked:   it.IsChecked,
			Notes:       it.Notes,
		})
	}
	return items, nil
}

// link turns an optional id into a column value. A malformed id can never
// match a row.
func link(id string) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if uuid.Validate(id) != nil {
		return nil, ErrLinkNotFound
	}
	return &id, nil
}
