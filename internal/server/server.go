// Package server assembles the chi router, the huma API and every module's routes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/cache"
	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/database"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	appmw "github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/realtime"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

// Module is implemented by every module handler.
type Module interface {
	RegisterRoutes(api huma.API)
}

// Check tests one named dependency for the health endpoint.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Deps holds what the router needs beyond the module handlers.
type Deps struct {
	Sessions appmw.SessionChecker
	Hub      *realtime.Hub
	Checks   []Check
	Modules  []Module
}

func init() {
	huma.NewError = apphttpx.NewHumaError
}

// New creates the router with every route registered.
func New(cfg *config.Config, log *slog.Logger, deps Deps) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The websocket connection outlives any request timeout.
	if deps.Hub != nil {
		router.With(appmw.Authenticator(cfg.JWT.Secret, deps.Sessions, log)).
			Get("/ws", realtime.Handler(deps.Hub, allowedOrigins(cfg), log))
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		apiConfig := huma.DefaultConfig("IPSEIS API", "1.0.0")
		apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearer": {
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		}
		api := humachi.New(r, apiConfig)

		for _, m := range deps.Modules {
			m.RegisterRoutes(api)
		}
		registerHealth(api, deps.Checks)
	})

	return router
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.Server.CORSOrigins) > 0 {
		return cfg.Server.CORSOrigins
	}
	return []string{cfg.Server.FrontendURL}
}

// requestLogger logs one line per request with slog.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type HealthResponse struct {
	Status int
	Body   struct {
		Status string   `json:"status"`
		Failed []string `json:"failed,omitempty"`
	}
}

// PostgresCheck and RedisCheck adapt the dependency pings to a Check.
func PostgresCheck(db database.Pinger) Check {
	return Check{Name: "postgres", Probe: func(ctx context.Context) error { return database.Check(ctx, db) }}
}

func RedisCheck(client redis.UniversalClient) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error { return cache.Check(ctx, client) }}
}

func registerHealth(api huma.API, checks []Check) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Pings Postgres and Redis. Responds 503 listing the failing dependencies.",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{Status: http.StatusOK}
		resp.Body.Status = "ok"
		for _, c := range checks {
			if err := c.Probe(ctx); err != nil {
				resp.Body.Failed = append(resp.Body.Failed, c.Name)
			}
		}
		if len(resp.Body.Failed) > 0 {
			resp.Status = http.StatusServiceUnavailable
			resp.Body.Status = "unavailable"
		}
		return resp, nil
	})
}
