package prospect

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/google/uuid"
)

// RecordInteraction finds or creates the prospect for in.Email and appends
// the interaction. The prospect row is folded with a single upsert so two
// concurrent first contacts for one email end on the same row.
func (s *service) RecordInteraction(ctx context.Context, in RecordInput) (*Prospect, *Interaction, error) {
	src, ok := in.Channel.source()
	if !ok {
		return nil, nil, fmt.Errorf("record interaction: %q is not a public channel", in.Channel)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}

	now := s.now()
	p := &Prospect{
		ID:                   id.String(),
		FirstName:            formatFirstName(in.FirstName),
		LastName:             formatLastName(in.LastName),
		Email:                normalizeEmail(in.Email),
		Source:               src,
		HasContactMessage:    in.Channel == InteractionContactMessage,
		HasCatalogueDownload: in.Channel == InteractionCatalogueDownload,
		LastInteractionDate:  now,
	}
	created, err := s.repo.Upsert(ctx, p)
	if err != nil {
		s.logger.Error("failed to upsert prospect", "error", err)
		return nil, nil, apperror.Internal(err)
	}

	interaction, err := s.appendInteraction(ctx, p.ID, in.Channel, in.Data, in.Meta)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("prospect interaction recorded", "prospect_id", p.ID, "type", in.Channel, "created", created)
	return p, interaction, nil
}

func (s *service) appendInteraction(ctx context.Context, prospectID string, t InteractionType, data map[string]any, meta Meta) (*Interaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	in := &Interaction{
		ID:         id.String(),
		ProspectID: prospectID,
		Type:       t,
		Data:       data,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IP,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AppendInteraction(ctx, in); err != nil {
		s.logger.Error("failed to append interaction", "prospect_id", prospectID, "error", err)
		return nil, apperror.Internal(err)
	}
	return in, nil
}

// ReconcileWithAccounts flips prospects whose email now has an account to
// converted and updates the given slice in place. It returns which ids
// have an account.
func (s *service) ReconcileWithAccounts(ctx context.Context, prospects []Prospect) (map[string]bool, error) {
	hasAccount := make(map[string]bool, len(prospects))
	if len(prospects) == 0 {
		return hasAccount, nil
	}

	emails := make([]string, 0, len(prospects))
	for _, p := range prospects {
		emails = append(emails, p.Email)
	}
	existing, err := s.accounts.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	var flip []string
	for i := range prospects {
		if !existing[prospects[i].Email] {
			continue
		}
		hasAccount[prospects[i].ID] = true
		if prospects[i].Status != StatusConverted {
			flip = append(flip, prospects[i].ID)
			prospects[i].Status = StatusConverted
		}
	}
	if len(flip) > 0 {
		if _, err := s.repo.SetStatus(ctx, flip, StatusConverted); err != nil {
			return nil, apperror.Internal(err)
		}
		s.logger.Info("prospects reconciled with accounts", "count", len(flip))
	}
	return hasAccount, nil
}

func (s *service) TransitionStatus(ctx context.Context, id string, status Status) (*Prospect, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.SetStatus(ctx, []string{id}, status); err != nil {
		return nil, apperror.Internal(err)
	}
	p.Status = status
	return p, nil
}

// Convert issues an activation code for the prospect's email and marks it
// converted. Prospects that already have an account are refused.
func (s *service) Convert(ctx context.Context, adminID, id string, role user.Role) (*Conversion, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.accounts.AccountExists(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrHasAccount
	}

	code, err := s.accounts.IssueActivationCode(ctx, adminID, p.Email, role)
	if err != nil {
		return nil, err
	}
	p, err = s.TransitionStatus(ctx, id, StatusConverted)
	if err != nil {
		return nil, err
	}
	s.logger.Info("prospect converted", "prospect_id", id, "role", role)
	return &Conversion{Prospect: p, Code: code}, nil
}

func (s *service) find(ctx context.Context, id string) (*Prospect, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrProspectNotFound
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProspectNotFound) {
			return nil, ErrProspectNotFound
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}
