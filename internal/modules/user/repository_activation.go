package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var activationColumns = []string{
	"id", "code", "role", "target_email", "is_used", "used_by", "used_at", "expires_at",
	"cancelled", "cancelled_at", "archived", "created_by", "created_at", "updated_at",
}

func (r *repository) CreateActivationCode(ctx context.Context, c *ActivationCode) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query, args, err := r.psql.Insert("activation_codes").
		Columns("id", "code", "role", "target_email", "expires_at", "created_by", "created_at", "updated_at").
		Values(c.ID, c.Code, c.Role, c.TargetEmail, c.ExpiresAt, c.CreatedBy, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) FindActivationCode(ctx context.Context, code string) (*ActivationCode, error) {
	return r.findActivation(ctx, squirrel.Eq{"code": code}, ErrInvalidActivationCode)
}

func (r *repository) FindActivationCodeByID(ctx context.Context, id string) (*ActivationCode, error) {
	return r.findActivation(ctx, squirrel.Eq{"id": id}, ErrActivationCodeNotFound)
}

func (r *repository) findActivation(ctx context.Context, where squirrel.Sqlizer, notFound error) (*ActivationCode, error) {
	query, args, err := r.psql.Select(activationColumns...).From("activation_codes").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var c ActivationCode
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListActivationCodes(ctx context.Context, archived bool) ([]ActivationCode, error) {
	query, args, err := r.psql.Select(activationColumns...).
		From("activation_codes").
		Where(squirrel.Eq{"archived": archived}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var codes []ActivationCode
	if err := pgxscan.Select(ctx, r.db, &codes, query, args...); err != nil {
		return nil, err
	}
	return codes, nil
}

// MarkActivationCodeUsed consumes the code. The is_used guard makes a second
// redemption of the same code fail.
func (r *repository) MarkActivationCodeUsed(ctx context.Context, id, userID string, at time.Time) error {
	query, args, err := r.psql.Update("activation_codes").
		Set("is_used", true).
		Set("used_by", userID).
		Set("used_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id, "is_used": false}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrActivationCodeUsed
	}
	return nil
}

func (r *repository) CancelActivationCode(ctx context.Context, id string, at time.Time) error {
	query, args, err := r.psql.Update("activation_codes").
		Set("cancelled", true).
		Set("cancelled_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrActivationCodeNotFound
	}
	return nil
}

func (r *repository) ArchiveActivationCode(ctx context.Context, id string) error {
	query, args, err := r.psql.Update("activation_codes").
		Set("archived", true).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrActivationCodeNotFound
	}
	return nil
}

func (r *repository) PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	query, args, err := r.psql.Delete("activation_codes").
		Where(squirrel.Lt{"expires_at": now}).
		Where(squirrel.Eq{"is_used": false}).
		ToSql()
	if err != nil {
		return 0, 0, err
	}
	codes, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, 0, err
	}

	query, args, err = r.psql.Delete("password_reset_tokens").Where(squirrel.Lt{"expires_at": now}).ToSql()
	if err != nil {
		return codes.RowsAffected(), 0, err
	}
	tokens, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return codes.RowsAffected(), 0, err
	}
	return codes.RowsAffected(), tokens.RowsAffected(), nil
}
