package user

import (
	"context"

	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
)

// UpdateProfileRequest defines the fields that can be updated on a user's profile.
type UpdateProfileRequest struct {
	Body struct {
		FirstName *string `json:"firstName,omitempty" validate:"omitnil,min=2"`
		LastName  *string `json:"lastName,omitempty" validate:"omitnil,min=2"`
		Phone     *string `json:"phone,omitempty"`
		Company   *string `json:"company,omitempty"`
		Position  *string `json:"position,omitempty"`
		Address   *string `json:"address,omitempty"`
	}
}

type RecipientsResponse struct {
	Body struct {
		Users []UserDTO `json:"users"`
	}
}

// GetProfileHandler retrieves the profile of the currently authenticated user.
func (h *Handler) GetProfileHandler(ctx context.Context, _ *struct{}) (*UserResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.service.GetProfile(ctx, id.UserID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &UserResponse{}
	resp.Body.User = toUserDTO(user)
	return resp, nil
}

// UpdateProfileHandler updates the profile of the currently authenticated user.
func (h *Handler) UpdateProfileHandler(ctx context.Context, input *UpdateProfileRequest) (*UserResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	b := input.Body
	user, err := h.service.UpdateProfile(ctx, id.UserID, UpdateProfileInput{
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Phone:     b.Phone,
		Company:   b.Company,
		Position:  b.Position,
		Address:   b.Address,
	})
	if err != nil {
		h.logger.Error("failed to update user profile", "user_id", id.UserID, "error", err)
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &UserResponse{}
	resp.Body.User = toUserDTO(user)
	return resp, nil
}

func (h *Handler) ListRecipientsHandler(ctx context.Context, _ *struct{}) (*RecipientsResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.service.ListRecipients(ctx, id.UserID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &RecipientsResponse{}
	resp.Body.Users = toUserDTOs(users)
	return resp, nil
}
