package session

import (
	"context"
	"errors"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Config controls session TTLs.
type Config struct {
	// SlidingTTL is the idle timeout. Each valid access pushes last_active_at forward.
	SlidingTTL time.Duration

	// AbsoluteTTL is the maximum lifetime from creation, regardless of activity.
	AbsoluteTTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Session is one login of a user, referenced by the "sid" claim of its JWT.
type Session struct {
	ID           string
	UserID       string
	UserAgent    string
	IPAddress    string
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// Provider manages server-side login sessions so a signed token can be revoked
// before it expires (logout, password change, deactivation).
//
// Session IDs are opaque, random, and prefixed with "auth:".
type Provider interface {
	// Create opens a session for userID and returns its ID.
	Create(ctx context.Context, userID, userAgent, ip string) (sessionID string, err error)

	// Touch validates the session (TTL checks) and extends its sliding TTL.
	Touch(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes one session. It is idempotent.
	Delete(ctx context.Context, sessionID string) error

	// DeleteForUser removes every session of a user.
	DeleteForUser(ctx context.Context, userID string) error
}

// NewPostgresProvider returns a Postgres-backed Provider implementation.
func NewPostgresProvider(db database.DBTX, cfg Config) Provider {
	return newPostgresProvider(db, cfg)
}
