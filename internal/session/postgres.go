package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionPrefix = "auth:"

type postgresProvider struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
	cfg  Config
}

type sessionRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	SessionToken string    `db:"session_token"`
	UserAgent    *string   `db:"user_agent"`
	IPAddress    *string   `db:"ip_address"`
	LastActiveAt time.Time `db:"last_active_at"`
	CreatedAt    time.Time `db:"created_at"`
}

func newPostgresProvider(db database.DBTX, cfg Config) *postgresProvider {
	if cfg.SlidingTTL == 0 {
		cfg.SlidingTTL = 7 * 24 * time.Hour
	}
	if cfg.AbsoluteTTL == 0 {
		cfg.AbsoluteTTL = 30 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &postgresProvider{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cfg:  cfg,
	}
}

func (p *postgresProvider) Create(ctx context.Context, userID, userAgent, ip string) (string, error) {
	raw, err := randomOpaque(32)
	if err != nil {
		return "", err
	}
	sessionID := sessionPrefix + raw

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session row id: %w", err)
	}

	now := p.cfg.Now()
	query, args, err := p.psql.Insert("user_active_sessions").
		Columns("id", "user_id", "session_token", "user_agent", "ip_address", "last_active_at", "created_at").
		Values(id.String(), userID, sessionID, nullable(userAgent), nullable(ip), now, now).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return sessionID, nil
}

func (p *postgresProvider) Touch(ctx context.Context, sessionID string) (*Session, error) {
	if !strings.HasPrefix(sessionID, sessionPrefix) {
		return nil, ErrNotFound
	}

	query, args, err := p.psql.Select("id", "user_id", "session_token", "user_agent", "ip_address", "last_active_at", "created_at").
		From("user_active_sessions").
		Where(squirrel.Eq{"session_token": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row sessionRow
	if err := pgxscan.Get(ctx, p.db, &row, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := p.cfg.Now()
	if now.Sub(row.CreatedAt) > p.cfg.AbsoluteTTL || now.Sub(row.LastActiveAt) > p.cfg.SlidingTTL {
		// Best effort cleanup
		_ = p.Delete(ctx, sessionID)
		return nil, ErrExpired
	}

	update, uargs, err := p.psql.Update("user_active_sessions").
		Set("last_active_at", now).
		Where(squirrel.Eq{"session_token": sessionID}).
		ToSql()
	if err == nil {
		_, _ = p.db.Exec(ctx, update, uargs...)
	}

	return &Session{
		ID:           row.SessionToken,
		UserID:       row.UserID,
		UserAgent:    deref(row.UserAgent),
		IPAddress:    deref(row.IPAddress),
		LastActiveAt: now,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func (p *postgresProvider) Delete(ctx context.Context, sessionID string) error {
	return p.deleteWhere(ctx, squirrel.Eq{"session_token": sessionID})
}

func (p *postgresProvider) DeleteForUser(ctx context.Context, userID string) error {
	return p.deleteWhere(ctx, squirrel.Eq{"user_id": userID})
}

func (p *postgresProvider) deleteWhere(ctx context.Context, cond squirrel.Sqlizer) error {
	query, args, err := p.psql.Delete("user_active_sessions").Where(cond).ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func randomOpaque(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
