package checklist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

type Handler struct {
	service Service
	logger  *slog.Logger
	guards  middleware.Guards
}

func NewHandler(service Service, logger *slog.Logger, guards middleware.Guards) *Handler {
	return &Handler{service: service, logger: logger, guards: guards}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	admin := h.guards.AdminOnly()

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-list",
		Method:      http.MethodGet,
		Path:        "/admin/checklists",
		Summary:     "List checklists",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-create",
		Method:      http.MethodPost,
		Path:        "/admin/checklists",
		Summary:     "Create a checklist",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-get",
		Method:      http.MethodGet,
		Path:        "/admin/checklists/{id}",
		Summary:     "Get a checklist",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-replace",
		Method:      http.MethodPut,
		Path:        "/admin/checklists/{id}",
		Summary:     "Replace a checklist and its items",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.ReplaceHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-item",
		Method:      http.MethodPatch,
		Path:        "/admin/checklists/{id}/items/{itemId}",
		Summary:     "Check an item or annotate it",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.UpdateItemHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-checklists-delete",
		Method:      http.MethodDelete,
		Path:        "/admin/checklists/{id}",
		Summary:     "Delete a checklist",
		Tags:        []string{"Checklists"},
		Middlewares: admin,
	}, h.DeleteHandler)
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ItemBody struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text" required:"false" validate:"required"`
	IsChecked bool   `json:"isChecked,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ChecklistBody is the full content of a checklist. Unset links may be sent
// as null.
type ChecklistBody struct {
	Title            string     `json:"title" required:"false" validate:"required"`
	Description      string     `json:"description,omitempty"`
	Items            []ItemBody `json:"items,omitempty" validate:"dive"`
	LinkedUserID     string     `json:"linkedUserId,omitempty" nullable:"true"`
	LinkedProspectID string     `json:"linkedProspectId,omitempty" nullable:"true"`
}

func (b *ChecklistBody) input() Input {
	in := Input{
		Title:            b.Title,
		Description:      b.Description,
		LinkedUserID:     b.LinkedUserID,
		LinkedProspectID: b.LinkedProspectID,
		Items:            make([]ItemInput, 0, len(b.Items)),
	}
	for _, it := range b.Items {
		in.Items = append(in.Items, ItemInput{ID: it.ID, Text: it.Text, IsChecked: it.IsChecked, Notes: it.Notes})
	}
	return in
}

type IDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type CreateRequest struct {
	Body ChecklistBody
}

type ReplaceRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body ChecklistBody
}

type ItemRequest struct {
	ID     string `path:"id" format:"uuid"`
	ItemID string `path:"itemId" format:"uuid"`
	Body   struct {
		IsChecked *bool   `json:"isChecked,omitempty"`
		Notes     *string `json:"notes,omitempty"`
	}
}

type ChecklistResponse struct {
	Body struct {
		Message   string `json:"message,omitempty"`
		Checklist DTO    `json:"checklist"`
	}
}

func respond(message string, v *View) *ChecklistResponse {
	resp := &ChecklistResponse{}
	resp.Body.Message = message
	resp.Body.Checklist = v.DTO()
	return resp
}

type ListRequest struct {
	Page  int `query:"page" default:"1" minimum:"1"`
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type ListResponse struct {
	Body struct {
		Checklists []DTO      `json:"checklists"`
		Pagination Pagination `json:"pagination"`
	}
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	rows, total, err := h.service.List(ctx, page, limit)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ListResponse{}
	resp.Body.Checklists = make([]DTO, 0, len(rows))
	for i := range rows {
		resp.Body.Checklists = append(resp.Body.Checklists, rows[i].DTO())
	}
	resp.Body.Pagination = Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
	return resp, nil
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*ChecklistResponse, error) {
	id, ok := contextx.IdentityFrom(ctx)
	if !ok {
		return nil, apphttpx.UnauthorizedProblem(ctx, "invalid authentication context")
	}
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	v, err := h.service.Create(ctx, id.UserID, input.Body.input())
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Checklist créée.", v), nil
}

func (h *Handler) GetHandler(ctx context.Context, input *IDRequest) (*ChecklistResponse, error) {
	v, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("", v), nil
}

func (h *Handler) ReplaceHandler(ctx context.Context, input *ReplaceRequest) (*ChecklistResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	v, err := h.service.Replace(ctx, input.ID, input.Body.input())
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Checklist mise à jour.", v), nil
}

func (h *Handler) UpdateItemHandler(ctx context.Context, input *ItemRequest) (*ChecklistResponse, error) {
	v, err := h.service.UpdateItem(ctx, input.ID, input.ItemID, ItemPatch{
		IsChecked: input.Body.IsChecked,
		Notes:     input.Body.Notes,
	})
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Item mis à jour.", v), nil
}

func (h *Handler) DeleteHandler(ctx context.Context, input *IDRequest) (*MessageResponse, error) {
	if err := h.service.Delete(ctx, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &MessageResponse{}
	resp.Body.Message = "Checklist supprimée."
	return resp, nil
}
