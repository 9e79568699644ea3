package resource

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
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
	auth := h.guards.Authenticated()

	huma.Register(api, huma.Operation{
		OperationID: "admin-resources-create",
		Method:      http.MethodPost,
		Path:        "/resources/admin",
		Summary:     "Upload a training resource",
		Tags:        []string{"Resources"},
		Middlewares: admin,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-resources-list",
		Method:      http.MethodGet,
		Path:        "/resources/admin",
		Summary:     "List training resources",
		Tags:        []string{"Resources"},
		Middlewares: admin,
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-resources-update",
		Method:      http.MethodPut,
		Path:        "/resources/admin/{id}",
		Summary:     "Update a training resource",
		Tags:        []string{"Resources"},
		Middlewares: admin,
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-resources-delete",
		Method:      http.MethodDelete,
		Path:        "/resources/admin/{id}",
		Summary:     "Delete a training resource",
		Tags:        []string{"Resources"},
		Middlewares: admin,
	}, h.DeleteHandler)

	huma.Register(api, huma.Operation{
		OperationID: "resources-mine",
		Method:      http.MethodGet,
		Path:        "/resources/my",
		Summary:     "List the resources of my signed trainings",
		Tags:        []string{"Resources"},
		Middlewares: auth,
	}, h.ListMineHandler)

	huma.Register(api, huma.Operation{
		OperationID: "resources-download",
		Method:      http.MethodGet,
		Path:        "/resources/download/{id}",
		Summary:     "Download a resource PDF",
		Tags:        []string{"Resources"},
		Middlewares: auth,
	}, h.DownloadHandler)
}

func actor(ctx context.Context) (Actor, error) {
	id, ok := contextx.IdentityFrom(ctx)
	if !ok {
		return Actor{}, apphttpx.UnauthorizedProblem(ctx, "invalid authentication context")
	}
	return Actor{UserID: id.UserID, Role: id.Role}, nil
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type IDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type ResourceResponse struct {
	Body struct {
		Message  string `json:"message"`
		Resource DTO    `json:"resource"`
	}
}

func respond(message string, v *View) *ResourceResponse {
	resp := &ResourceResponse{}
	resp.Body.Message = message
	resp.Body.Resource = v.DTO()
	return resp
}

func dtos(rows []View) []DTO {
	out := make([]DTO, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].DTO())
	}
	return out
}

type pdfUpload struct {
	PDF huma.FormFile `form:"pdf"`
}

type CreateRequest struct {
	RawBody huma.MultipartFormFiles[pdfUpload]
}

type UpdateRequest struct {
	ID      string `path:"id" format:"uuid"`
	RawBody huma.MultipartFormFiles[pdfUpload]
}

// formFields reads the text parts of a resource form. Absent parts are nil.
type formFields map[string][]string

func (f formFields) get(key string) *string {
	v, ok := f[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

// roles reads targetRoles, sent either as a JSON array, a single role or
// a repeated field. The second result is false when the field is absent.
func (f formFields) roles() ([]string, bool) {
	v, ok := f["targetRoles"]
	if !ok {
		return nil, false
	}
	if len(v) == 1 {
		raw := strings.TrimSpace(v[0])
		var list []string
		if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &list) == nil {
			return list, true
		}
	}
	return v, true
}

func (f formFields) patch() Patch {
	p := Patch{
		Title:            f.get("title"),
		Description:      f.get("description"),
		LinkedTrainingID: f.get("linkedTraining"),
	}
	p.TargetRoles, p.SetTargetRoles = f.roles()
	return p
}

func upload(body *huma.MultipartFormFiles[pdfUpload]) (formFields, *Upload, func()) {
	fields := formFields{}
	if body.Form != nil {
		fields = body.Form.Value
	}
	data := body.Data()
	if data == nil || !data.PDF.IsSet {
		return fields, nil, func() {}
	}
	return fields, &Upload{File: data.PDF.File, Filename: data.PDF.Filename}, func() { _ = data.PDF.Close() }
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*ResourceResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fields, pdf, done := upload(&input.RawBody)
	defer done()

	p := fields.patch()
	v, err := h.service.Create(ctx, a, Input{
		Title:            deref(p.Title),
		Description:      deref(p.Description),
		LinkedTrainingID: deref(p.LinkedTrainingID),
		TargetRoles:      p.TargetRoles,
	}, pdf)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Ressource créée avec succès.", v), nil
}

func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*ResourceResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fields, pdf, done := upload(&input.RawBody)
	defer done()

	v, err := h.service.Update(ctx, a, input.ID, fields.patch(), pdf)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Ressource modifiée avec succès.", v), nil
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *Handler) DeleteHandler(ctx context.Context, input *IDRequest) (*MessageResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Delete(ctx, a, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &MessageResponse{}
	resp.Body.Message = "Ressource supprimée."
	return resp, nil
}

type ListRequest struct {
	TrainingID string `query:"trainingId"`
	Page       int    `query:"page" default:"1" minimum:"1"`
	Limit      int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type ListResponse struct {
	Body struct {
		Resources  []DTO      `json:"resources"`
		Pagination Pagination `json:"pagination"`
	}
}

func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	rows, total, err := h.service.List(ctx, a, input.TrainingID, page, limit)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ListResponse{}
	resp.Body.Resources = dtos(rows)
	resp.Body.Pagination = Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
	return resp, nil
}

type MineResponse struct {
	Body struct {
		Resources []DTO `json:"resources"`
	}
}

func (h *Handler) ListMineHandler(ctx context.Context, _ *struct{}) (*MineResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := h.service.ListMine(ctx, a)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &MineResponse{}
	resp.Body.Resources = dtos(rows)
	return resp, nil
}

func (h *Handler) DownloadHandler(ctx context.Context, input *IDRequest) (*huma.StreamResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	rc, res, err := h.service.Document(ctx, a, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer rc.Close()
			hctx.SetHeader("Content-Type", "application/pdf")
			hctx.SetHeader("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.DownloadName()}))
			if _, err := io.Copy(hctx.BodyWriter(), rc); err != nil {
				h.logger.Warn("resource download interrupted", "resource_id", res.ID, "error", err)
			}
		},
	}, nil
}
