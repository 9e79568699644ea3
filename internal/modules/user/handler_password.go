package user

import (
	"context"

	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
)

// --- DTOs ---

// ForgotPasswordRequest defines the structure for initiating a password reset.
type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// ResetPasswordRequest defines the structure for finalizing a password reset.
type ResetPasswordRequest struct {
	Body struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

type ChangePasswordRequest struct {
	Body struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
	}
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(m string) *MessageResponse {
	resp := &MessageResponse{}
	resp.Body.Message = m
	return resp
}

// --- Handlers ---

// ForgotPasswordHandler always answers with the same message so callers cannot
// learn which emails are registered.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	if err := h.service.InitiatePasswordReset(ctx, input.Body.Email); err != nil {
		h.logger.Error("failed to initiate password reset", "error", err)
	}
	return message("if an account exists for this email, a reset link has been sent"), nil
}

// ResetPasswordHandler handles the request to set a new password using a reset token.
func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	if err := h.service.FinalizePasswordReset(ctx, input.Body.Token, input.Body.Password); err != nil {
		h.logger.Warn("failed to reset password", "error", err)
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("password updated"), nil
}

// ChangePasswordHandler signs the user out of every session on success.
func (h *Handler) ChangePasswordHandler(ctx context.Context, input *ChangePasswordRequest) (*LogoutResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	if err := h.service.ChangePassword(ctx, id.UserID, input.Body.CurrentPassword, input.Body.NewPassword); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return &LogoutResponse{SetCookie: h.tokenCookie("", -1)}, nil
}
