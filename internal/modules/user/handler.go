package user

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/danielgtaylor/huma/v2"
)

// HandlerConfig holds the cookie settings of the auth routes.
type HandlerConfig struct {
	SecureCookies bool
	TokenTTL      time.Duration
}

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
	guards  middleware.Guards
	cfg     HandlerConfig
}

// NewHandler creates a new handler for the user module.
func NewHandler(service Service, logger *slog.Logger, guards middleware.Guards, cfg HandlerConfig) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		guards:  guards,
		cfg:     cfg,
	}
}

// RegisterRoutes sets up the routing for the user module.
// It defines all the API endpoints and connects them to their respective handler functions.
func (h *Handler) RegisterRoutes(api huma.API) {
	// --- Authentication Routes ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register with an activation code",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.guards.Public(),
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in a user",
		Tags:        []string{"Auth"},
		Middlewares: h.guards.Public(),
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Log out the current session",
		Tags:        []string{"Auth"},
		Middlewares: h.guards.Authenticated(),
	}, h.LogoutHandler)

	// --- Password Management Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Summary:     "Initiate password reset",
		Tags:        []string{"Auth"},
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Reset password with a token",
		Tags:        []string{"Auth"},
	}, h.ResetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-change-password",
		Method:      http.MethodPost,
		Path:        "/auth/change-password",
		Summary:     "Change the current user's password",
		Tags:        []string{"Auth"},
		Middlewares: h.guards.Authenticated(),
	}, h.ChangePasswordHandler)

	// --- Profile Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get the current user's profile",
		Tags:        []string{"Auth"},
		Middlewares: h.guards.Authenticated(),
	}, h.GetProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-update-profile",
		Method:      http.MethodPatch,
		Path:        "/auth/profile",
		Summary:     "Update the current user's profile",
		Tags:        []string{"Auth"},
		Middlewares: h.guards.Authenticated(),
	}, h.UpdateProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "users-recipients",
		Method:      http.MethodGet,
		Path:        "/users/recipients",
		Summary:     "List users the caller can message",
		Tags:        []string{"Users"},
		Middlewares: h.guards.Authenticated(),
	}, h.ListRecipientsHandler)

	h.registerActivationRoutes(api)
	h.registerAdminRoutes(api)
}

// identity returns the authenticated caller set by the auth middleware.
func identity(ctx context.Context) (contextx.Identity, error) {
	id, ok := contextx.IdentityFrom(ctx)
	if !ok {
		return contextx.Identity{}, apphttpx.UnauthorizedProblem(ctx, "invalid authentication context")
	}
	return id, nil
}

// UserDTO is the public representation of an account.
type UserDTO struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Position  string    `json:"position"`
	Address   string    `json:"address"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserDTO(u *User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Company:   u.Company,
		Position:  u.Position,
		Address:   u.Address,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserDTOs(users []User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return out
}
