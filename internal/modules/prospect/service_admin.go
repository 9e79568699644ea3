package prospect

import (
	"context"
	"errors"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
)

// List returns one page of prospects after reconciling it with the accounts.
func (s *service) List(ctx context.Context, f ListFilter) ([]Listed, int, error) {
	prospects, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to list prospects", "error", err)
		return nil, 0, apperror.Internal(err)
	}

	hasAccount, err := s.ReconcileWithAccounts(ctx, prospects)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(prospects))
	for _, p := range prospects {
		ids = append(ids, p.ID)
	}
	recent, err := s.repo.RecentInteractions(ctx, ids, recentInteractions)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	out := make([]Listed, 0, len(prospects))
	for _, p := range prospects {
		out = append(out, Listed{
			Prospect:     p,
			HasAccount:   hasAccount[p.ID],
			Interactions: recent[p.ID],
		})
	}
	return out, total, nil
}

func (s *service) Get(ctx context.Context, id string) (*Detail, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []Prospect{*p}
	hasAccount, err := s.ReconcileWithAccounts(ctx, one)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &Detail{Prospect: one[0], HasAccount: hasAccount[id], Interactions: history}, nil
}

// Contact emails the prospect on behalf of the administrator. Nothing is
// recorded when the email fails.
func (s *service) Contact(ctx context.Context, id, subject, message string) (*Prospect, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	email, err := notification.Compose(ctx, s.templates, templates.ProspectOutreach, p.Email, templates.ProspectOutreachData{
		FirstName: p.FirstName,
		Subject:   subject,
		Message:   message,
	})
	if err == nil {
		err = s.mailer.SendEmail(ctx, email)
	}
	if err != nil {
		s.logger.Error("failed to email prospect", "prospect_id", id, "error", err)
		return nil, apperror.ErrEmailDelivery.WithCause(err)
	}

	if _, err := s.appendInteraction(ctx, id, InteractionAdminOutreach, map[string]any{
		"subject": subject,
		"message": message,
	}, Meta{}); err != nil {
		return nil, err
	}
	p, err = s.repo.RecordOutreach(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, ErrProspectNotFound) {
			return nil, ErrProspectNotFound
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (s *service) ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset uint64) ([]ContactMessage, int, error) {
	msgs, total, err := s.repo.ListContactMessages(ctx, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return msgs, total, nil
}

func (s *service) MarkContactMessageRead(ctx context.Context, id string) error {
	if err := s.repo.MarkContactMessageRead(ctx, id); err != nil {
		if errors.Is(err, ErrContactMessageNotFound) {
			return ErrContactMessageNotFound
		}
		return apperror.Internal(err)
	}
	return nil
}
