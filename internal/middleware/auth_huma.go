package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/danielgtaylor/huma/v2"
)

// HumaMiddleware is the shape huma.Operation.Middlewares accepts.
type HumaMiddleware = func(ctx huma.Context, next func(huma.Context))

// JWTAuthHuma is a router-agnostic Huma middleware that validates the session
// token and injects the caller's contextx.Identity for downstream handlers.
// On failure it writes an RFC7807 problem+json response with code ErrUnauthorized.
func JWTAuthHuma(jwtSecret string, sessions SessionChecker, logger *slog.Logger) HumaMiddleware {
	a := &authenticator{secret: jwtSecret, sessions: sessions, logger: logger}
	return func(ctx huma.Context, next func(huma.Context)) {
		raw := tokenFrom(ctx.Header("Authorization"), ctx.Header("Cookie"))
		id, reason, ok := a.identify(ctx.Context(), raw)
		if !ok {
			writeProblem(ctx, apphttpx.UnauthorizedProblem(ctx.Context(), reason))
			return
		}
		next(huma.WithValue(ctx, contextx.IdentityKey, id))
	}
}

// RequireRole rejects callers whose role is not listed. It must run after JWTAuthHuma.
func RequireRole(roles ...string) HumaMiddleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		id, ok := contextx.IdentityFrom(ctx.Context())
		if !ok {
			writeProblem(ctx, apphttpx.UnauthorizedProblem(ctx.Context(), "authentication required"))
			return
		}
		if !slices.Contains(roles, id.Role) {
			writeProblem(ctx, apphttpx.ForbiddenProblem(ctx.Context(), "insufficient permissions"))
			return
		}
		next(ctx)
	}
}

// RequestMetaHuma records the proxy-aware client address and raw User-Agent.
func RequestMetaHuma() HumaMiddleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := contextx.RequestMeta{
			IP:        apphttpx.ClientIP(apphttpx.HeaderFunc(ctx.Header), ctx.RemoteAddr()),
			UserAgent: ctx.Header("User-Agent"),
		}
		next(huma.WithValue(ctx, contextx.RequestMetaKey, meta))
	}
}

func writeProblem(ctx huma.Context, p *apphttpx.Problem) {
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(p.GetStatus())
	if err := jsonEncode(ctx.BodyWriter(), p); err != nil {
		ctx.SetStatus(http.StatusInternalServerError)
	}
}
