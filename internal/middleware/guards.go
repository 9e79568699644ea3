package middleware

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
)

// RoleAdmin is the wire value of the administrator role.
const RoleAdmin = "administrateur"

// Guards bundles the per-operation middleware chains modules attach to routes.
type Guards struct {
	auth  HumaMiddleware
	admin HumaMiddleware
	meta  HumaMiddleware
}

func NewGuards(jwtSecret string, sessions SessionChecker, logger *slog.Logger) Guards {
	return Guards{
		auth:  JWTAuthHuma(jwtSecret, sessions, logger),
		admin: RequireRole(RoleAdmin),
		meta:  RequestMetaHuma(),
	}
}

// Public only records request metadata.
func (g Guards) Public() huma.Middlewares {
	return huma.Middlewares{g.meta}
}

// Authenticated requires a valid session.
func (g Guards) Authenticated() huma.Middlewares {
	return huma.Middlewares{g.meta, g.auth}
}

// AdminOnly requires a valid session with the administrator role.
func (g Guards) AdminOnly() huma.Middlewares {
	return huma.Middlewares{g.meta, g.auth, g.admin}
}
