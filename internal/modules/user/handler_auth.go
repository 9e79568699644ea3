package user

import (
	"context"
	"net/http"

	"github.com/Jyok1m/ipseis-backend/internal/authtoken"
	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
)

// --- DTOs (Data Transfer Objects) ---

// RegisterRequest defines the structure for the user registration request body.
type RegisterRequest struct {
	Body struct {
		FirstName       string `json:"firstName" validate:"required,min=2"`
		LastName        string `json:"lastName" validate:"required,min=2"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
		Phone           string `json:"phone,omitempty"`
		Company         string `json:"company,omitempty"`
		Position        string `json:"position,omitempty"`
		Address         string `json:"address,omitempty"`
		ActivationCode  string `json:"activationCode" validate:"required,len=8"`
	}
}

// UserResponse wraps a single account.
type UserResponse struct {
	Body struct {
		User UserDTO `json:"user"`
	}
}

// LoginRequest defines the structure for the user login request body.
type LoginRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
}

// LoginResponse carries the token in the body and in an HttpOnly cookie.
type LoginResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Token string  `json:"token"`
		User  UserDTO `json:"user"`
	}
}

// LogoutResponse clears the token cookie.
type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// --- Handlers ---

// RegisterHandler handles the user registration endpoint.
func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*UserResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	user, err := h.service.Register(ctx, RegisterInput{
		FirstName:      input.Body.FirstName,
		LastName:       input.Body.LastName,
		Email:          input.Body.Email,
		Password:       input.Body.Password,
		Phone:          input.Body.Phone,
		Company:        input.Body.Company,
		Position:       input.Body.Position,
		Address:        input.Body.Address,
		ActivationCode: input.Body.ActivationCode,
	})
	if err != nil {
		h.logger.Warn("registration failed", "error", err)
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &UserResponse{}
	resp.Body.User = toUserDTO(user)
	return resp, nil
}

// LoginHandler handles the user login endpoint.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*LoginResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	meta := contextx.RequestMetaFrom(ctx)
	res, err := h.service.Login(ctx, input.Body.Email, input.Body.Password, LoginMeta{IP: meta.IP, UserAgent: meta.UserAgent})
	if err != nil {
		h.logger.Warn("login attempt failed", "error", err)
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &LoginResponse{SetCookie: h.tokenCookie(res.Token, int(h.cfg.TokenTTL.Seconds()))}
	resp.Body.Token = res.Token
	resp.Body.User = toUserDTO(res.User)
	return resp, nil
}

// LogoutHandler revokes the current session.
func (h *Handler) LogoutHandler(ctx context.Context, _ *struct{}) (*LogoutResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Logout(ctx, id.SessionID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return &LogoutResponse{SetCookie: h.tokenCookie("", -1)}, nil
}

func (h *Handler) tokenCookie(value string, maxAge int) http.Cookie {
	return http.Cookie{
		Name:     authtoken.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
