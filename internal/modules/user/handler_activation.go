package user

import (
	"context"
	"net/http"
	"time"

	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerActivationRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "admin-create-activation-code",
		Method:        http.MethodPost,
		Path:          "/admin/activation-codes",
		Summary:       "Create and email an activation code",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.guards.AdminOnly(),
	}, h.CreateActivationCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-list-activation-codes",
		Method:      http.MethodGet,
		Path:        "/admin/activation-codes",
		Summary:     "List activation codes",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ListActivationCodesHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-cancel-activation-code",
		Method:      http.MethodPatch,
		Path:        "/admin/activation-codes/{id}/cancel",
		Summary:     "Cancel an unused activation code",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.CancelActivationCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-archive-activation-code",
		Method:      http.MethodPatch,
		Path:        "/admin/activation-codes/{id}/archive",
		Summary:     "Archive an activation code",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ArchiveActivationCodeHandler)
}

type ActivationCodeDTO struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Role        Role       `json:"role"`
	TargetEmail string     `json:"targetEmail"`
	IsUsed      bool       `json:"isUsed"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Cancelled   bool       `json:"cancelled"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toActivationCodeDTO(c *ActivationCode) ActivationCodeDTO {
	return ActivationCodeDTO{
		ID:          c.ID,
		Code:        c.Code,
		Role:        c.Role,
		TargetEmail: c.TargetEmail,
		IsUsed:      c.IsUsed,
		UsedAt:      c.UsedAt,
		ExpiresAt:   c.ExpiresAt,
		Cancelled:   c.Cancelled,
		CancelledAt: c.CancelledAt,
		Archived:    c.Archived,
		CreatedAt:   c.CreatedAt,
	}
}

type CreateActivationCodeRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
		Role  Role   `json:"role" enum:"apprenant,professionnel" validate:"required,oneof=apprenant professionnel"`
	}
}

type ActivationCodeResponse struct {
	Body struct {
		ActivationCode ActivationCodeDTO `json:"activationCode"`
	}
}

type ListActivationCodesRequest struct {
	Archived bool `query:"archived"`
}

type ActivationCodesResponse struct {
	Body struct {
		ActivationCodes []ActivationCodeDTO `json:"activationCodes"`
	}
}

type ActivationCodeIDRequest struct {
	ID string `path:"id" format:"uuid"`
}

func (h *Handler) CreateActivationCodeHandler(ctx context.Context, input *CreateActivationCodeRequest) (*ActivationCodeResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	c, err := h.service.CreateActivationCode(ctx, id.UserID, input.Body.Email, input.Body.Role)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ActivationCodeResponse{}
	resp.Body.ActivationCode = toActivationCodeDTO(c)
	return resp, nil
}

func (h *Handler) ListActivationCodesHandler(ctx context.Context, input *ListActivationCodesRequest) (*ActivationCodesResponse, error) {
	codes, err := h.service.ListActivationCodes(ctx, input.Archived)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ActivationCodesResponse{}
	resp.Body.ActivationCodes = make([]ActivationCodeDTO, 0, len(codes))
	for i := range codes {
		resp.Body.ActivationCodes = append(resp.Body.ActivationCodes, toActivationCodeDTO(&codes[i]))
	}
	return resp, nil
}

func (h *Handler) CancelActivationCodeHandler(ctx context.Context, input *ActivationCodeIDRequest) (*ActivationCodeResponse, error) {
	c, err := h.service.CancelActivationCode(ctx, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ActivationCodeResponse{}
	resp.Body.ActivationCode = toActivationCodeDTO(c)
	return resp, nil
}

func (h *Handler) ArchiveActivationCodeHandler(ctx context.Context, input *ActivationCodeIDRequest) (*MessageResponse, error) {
	if err := h.service.ArchiveActivationCode(ctx, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("activation code archived"), nil
}
