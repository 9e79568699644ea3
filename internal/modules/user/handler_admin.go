package user

import (
	"context"
	"net/http"

	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerAdminRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-users",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List user accounts",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ListUsersHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-user",
		Method:      http.MethodGet,
		Path:        "/admin/users/{id}",
		Summary:     "Get a user account",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.GetUserHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-update-user",
		Method:      http.MethodPatch,
		Path:        "/admin/users/{id}",
		Summary:     "Update a user account",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.AdminUpdateUserHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-delete-user",
		Method:      http.MethodDelete,
		Path:        "/admin/users/{id}",
		Summary:     "Delete a user account",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.DeleteUserHandler)
}

type ListUsersRequest struct {
	Role   string `query:"role" enum:"administrateur,apprenant,professionnel"`
	Search string `query:"search"`
	Page   int    `query:"page" default:"1" minimum:"1"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type UsersResponse struct {
	Body struct {
		Users []UserDTO `json:"users"`
		Total int       `json:"total"`
		Page  int       `json:"page"`
		Pages int       `json:"pages"`
	}
}

type UserIDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type AdminUpdateUserRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		FirstName *string `json:"firstName,omitempty" validate:"omitnil,min=2"`
		LastName  *string `json:"lastName,omitempty" validate:"omitnil,min=2"`
		Phone     *string `json:"phone,omitempty"`
		Company   *string `json:"company,omitempty"`
		Position  *string `json:"position,omitempty"`
		Address   *string `json:"address,omitempty"`
		Role      *Role   `json:"role,omitempty" validate:"omitnil,oneof=administrateur apprenant professionnel"`
		IsActive  *bool   `json:"isActive,omitempty"`
	}
}

func (h *Handler) ListUsersHandler(ctx context.Context, input *ListUsersRequest) (*UsersResponse, error) {
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	users, total, err := h.service.ListUsers(ctx, ListFilter{
		Role:   Role(input.Role),
		Search: input.Search,
		Limit:  uint64(limit),
		Offset: uint64((page - 1) * limit),
	})
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &UsersResponse{}
	resp.Body.Users = toUserDTOs(users)
	resp.Body.Total = total
	resp.Body.Page = page
	resp.Body.Pages = (total + limit - 1) / limit
	return resp, nil
}

func (h *Handler) GetUserHandler(ctx context.Context, input *UserIDRequest) (*UserResponse, error) {
	user, err := h.service.GetUser(ctx, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &UserResponse{}
	resp.Body.User = toUserDTO(user)
	return resp, nil
}

func (h *Handler) AdminUpdateUserHandler(ctx context.Context, input *AdminUpdateUserRequest) (*UserResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	b := input.Body
	user, err := h.service.AdminUpdateUser(ctx, input.ID, AdminUpdateInput{
		UpdateProfileInput: UpdateProfileInput{
			FirstName: b.FirstName,
			LastName:  b.LastName,
			Phone:     b.Phone,
			Company:   b.Company,
			Position:  b.Position,
			Address:   b.Address,
		},
		Role:     b.Role,
		IsActive: b.IsActive,
	})
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &UserResponse{}
	resp.Body.User = toUserDTO(user)
	return resp, nil
}

func (h *Handler) DeleteUserHandler(ctx context.Context, input *UserIDRequest) (*MessageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeleteUser(ctx, id.UserID, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("user deleted"), nil
}
