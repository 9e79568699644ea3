package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

func (r *repository) CreateResetToken(ctx context.Context, t *PasswordResetToken) error {
	t.CreatedAt = time.Now()
	query, args, err := r.psql.Insert("password_reset_tokens").
		Columns("id", "user_id", "token_hash", "expires_at", "created_at").
		Values(t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindResetToken returns ErrInvalidResetToken when no row matches.
func (r *repository) FindResetToken(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	query, args, err := r.psql.Select("id", "user_id", "token_hash", "expires_at", "created_at").
		From("password_reset_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t PasswordResetToken
	if err := pgxscan.Get(ctx, r.db, &t, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) DeleteResetTokensForUser(ctx context.Context, userID string) error {
	query, args, err := r.psql.Delete("password_reset_tokens").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
