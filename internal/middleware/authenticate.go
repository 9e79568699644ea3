package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Jyok1m/ipseis-backend/internal/authtoken"
	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	"github.com/Jyok1m/ipseis-backend/internal/session"
)

// SessionChecker is the part of session.Provider the middlewares need.
type SessionChecker interface {
	Touch(ctx context.Context, sessionID string) (*session.Session, error)
}

var errNoToken = errors.New("missing authorization header")

// authenticator verifies a raw token and its backing session.
type authenticator struct {
	secret   string
	sessions SessionChecker
	logger   *slog.Logger
}

func (a *authenticator) identify(ctx context.Context, raw string) (contextx.Identity, string, bool) {
	if raw == "" {
		return contextx.Identity{}, errNoToken.Error(), false
	}

	claims, err := authtoken.Parse(a.secret, raw)
	if err != nil {
		a.logger.Warn("invalid jwt token", "error", err)
		return contextx.Identity{}, "invalid or expired token", false
	}

	if a.sessions != nil {
		sess, err := a.sessions.Touch(ctx, claims.SessionID)
		if err != nil || sess.UserID != claims.UserID {
			a.logger.Warn("session rejected", "user_id", claims.UserID, "error", err)
			return contextx.Identity{}, "session expired, please log in again", false
		}
	}

	return contextx.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, "", true
}

// tokenFrom extracts a bearer token from the Authorization header, falling back
// to the session cookie set at login.
func tokenFrom(authHeader, cookieHeader string) string {
	if authHeader != "" {
		if tok, found := strings.CutPrefix(authHeader, "Bearer "); found {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if cookieHeader == "" {
		return ""
	}
	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == authtoken.CookieName {
			return c.Value
		}
	}
	return ""
}
