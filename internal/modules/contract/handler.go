package contract

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

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

	// --- Admin ---
	huma.Register(api, huma.Operation{
		OperationID:   "admin-contracts-create",
		Method:        http.MethodPost,
		Path:          "/admin/contracts",
		Summary:       "Create a draft contract",
		Tags:          []string{"Contracts"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   admin,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-list",
		Method:      http.MethodGet,
		Path:        "/admin/contracts",
		Summary:     "List contracts",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-get",
		Method:      http.MethodGet,
		Path:        "/admin/contracts/{id}",
		Summary:     "Get a contract",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-update",
		Method:      http.MethodPut,
		Path:        "/admin/contracts/{id}",
		Summary:     "Update a draft contract",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-send",
		Method:      http.MethodPatch,
		Path:        "/admin/contracts/{id}/send",
		Summary:     "Send a draft to its recipient",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.SendHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-cancel",
		Method:      http.MethodPatch,
		Path:        "/admin/contracts/{id}/cancel",
		Summary:     "Cancel a contract",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.CancelHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contracts-delete",
		Method:      http.MethodDelete,
		Path:        "/admin/contracts/{id}",
		Summary:     "Delete a draft contract",
		Tags:        []string{"Contracts"},
		Middlewares: admin,
	}, h.DeleteHandler)

	// --- Recipient ---
	huma.Register(api, huma.Operation{
		OperationID: "contracts-mine",
		Method:      http.MethodGet,
		Path:        "/contracts/my",
		Summary:     "List the contracts addressed to me",
		Tags:        []string{"Contracts"},
		Middlewares: auth,
	}, h.ListMineHandler)

	huma.Register(api, huma.Operation{
		OperationID: "contracts-get",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}",
		Summary:     "Get one of my contracts",
		Tags:        []string{"Contracts"},
		Middlewares: auth,
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "contracts-sign",
		Method:      http.MethodPatch,
		Path:        "/contracts/{id}/sign",
		Summary:     "Sign a contract",
		Tags:        []string{"Contracts"},
		Middlewares: auth,
	}, h.SignHandler)

	huma.Register(api, huma.Operation{
		OperationID: "contracts-reject",
		Method:      http.MethodPatch,
		Path:        "/contracts/{id}/reject",
		Summary:     "Reject a contract",
		Tags:        []string{"Contracts"},
		Middlewares: auth,
	}, h.RejectHandler)

	huma.Register(api, huma.Operation{
		OperationID: "contracts-download",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}/download",
		Summary:     "Download the contract PDF",
		Tags:        []string{"Contracts"},
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

type ContractResponse struct {
	Body struct {
		Message  string `json:"message,omitempty"`
		Contract DTO    `json:"contract"`
	}
}

func respond(message string, v *View) *ContractResponse {
	resp := &ContractResponse{}
	resp.Body.Message = message
	resp.Body.Contract = v.DTO()
	return resp
}

type ListResponse struct {
	Body struct {
		Contracts  []DTO      `json:"contracts"`
		Pagination Pagination `json:"pagination"`
	}
}

func listResponse(rows []View, page, limit, total int) *ListResponse {
	resp := &ListResponse{}
	resp.Body.Contracts = make([]DTO, 0, len(rows))
	for i := range rows {
		resp.Body.Contracts = append(resp.Body.Contracts, rows[i].DTO())
	}
	resp.Body.Pagination = Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
	return resp
}

// --- Multipart bodies ---

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

// formFields reads the text parts of a contract form. Absent parts are nil.
type formFields map[string][]string

func (f formFields) get(key string) *string {
	v, ok := f[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

func (f formFields) date(key string) (*time.Time, error) {
	raw := f.get(key)
	if raw == nil {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty value yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func (f formFields) amount() (*float64, error) {
	raw := f.get("amount")
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(strings.Replace(*raw, ",", ".", 1))
	if s == "" {
		var zero float64
		return &zero, nil
	}
	a, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	return &a, nil
}

func (f formFields) patch() (Patch, error) {
	p := Patch{
		Title:            f.get("title"),
		Description:      f.get("description"),
		LinkedTrainingID: f.get("linkedTraining"),
		RecipientID:      f.get("recipientUser"),
	}
	var err error
	if p.StartDate, err = f.date("startDate"); err != nil {
		return Patch{}, err
	}
	if p.EndDate, err = f.date("endDate"); err != nil {
		return Patch{}, err
	}
	if p.Amount, err = f.amount(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func upload(body *huma.MultipartFormFiles[pdfUpload]) (formFields, io.Reader, func()) {
	fields := formFields{}
	if body.Form != nil {
		fields = body.Form.Value
	}
	data := body.Data()
	if data == nil || !data.PDF.IsSet {
		return fields, nil, func() {}
	}
	return fields, data.PDF.File, func() { _ = data.PDF.Close() }
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*ContractResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fields, pdf, done := upload(&input.RawBody)
	defer done()

	p, err := fields.patch()
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	in := Input{
		Title:            deref(p.Title),
		Description:      deref(p.Description),
		LinkedTrainingID: deref(p.LinkedTrainingID),
		RecipientID:      deref(p.RecipientID),
		StartDate:        clearableOrNil(p.StartDate),
		EndDate:          clearableOrNil(p.EndDate),
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}

	v, err := h.service.Create(ctx, a, in, pdf)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Contrat créé avec succès.", v), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clearableOrNil(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*ContractResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	fields, pdf, done := upload(&input.RawBody)
	defer done()

	p, err := fields.patch()
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	v, err := h.service.Update(ctx, a, input.ID, p, pdf)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("Contrat modifié avec succès.", v), nil
}

type ListRequest struct {
	Status string `query:"status" enum:"draft,sent,signed,cancelled,rejected"`
	Page   int    `query:"page" default:"1" minimum:"1"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	rows, total, err := h.service.List(ctx, a, Status(input.Status), page, limit)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return listResponse(rows, page, limit, total), nil
}

type ListMineRequest struct {
	Page  int `query:"page" default:"1" minimum:"1"`
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

func (h *Handler) ListMineHandler(ctx context.Context, input *ListMineRequest) (*ListResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	rows, total, err := h.service.ListMine(ctx, a, page, limit)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return listResponse(rows, page, limit, total), nil
}

func (h *Handler) GetHandler(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	v, err := h.service.Get(ctx, a, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return respond("", v), nil
}

// transitionHandler adapts a state change operation to a route.
func (h *Handler) transitionHandler(op func(context.Context, Actor, string) (*View, error), message string) func(context.Context, *IDRequest) (*ContractResponse, error) {
	return func(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
		a, err := actor(ctx)
		if err != nil {
			return nil, err
		}
		v, err := op(ctx, a, input.ID)
		if err != nil {
			return nil, apphttpx.ToProblem(ctx, err)
		}
		return respond(message, v), nil
	}
}

func (h *Handler) SendHandler(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
	return h.transitionHandler(h.service.Send, "Contrat envoyé avec succès.")(ctx, input)
}

func (h *Handler) CancelHandler(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
	return h.transitionHandler(h.service.Cancel, "Contrat annulé.")(ctx, input)
}

func (h *Handler) RejectHandler(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
	return h.transitionHandler(h.service.Reject, "Contrat rejeté.")(ctx, input)
}

// SignHandler records the caller's address and user agent as signing evidence.
func (h *Handler) SignHandler(ctx context.Context, input *IDRequest) (*ContractResponse, error) {
	meta := contextx.RequestMetaFrom(ctx)
	sign := func(ctx context.Context, a Actor, id string) (*View, error) {
		return h.service.Sign(ctx, a, id, Evidence{IP: meta.IP, UserAgent: meta.UserAgent})
	}
	return h.transitionHandler(sign, "Contrat signé avec succès.")(ctx, input)
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
	resp.Body.Message = "Contrat supprimé."
	return resp, nil
}

func (h *Handler) DownloadHandler(ctx context.Context, input *IDRequest) (*huma.StreamResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	rc, v, err := h.service.Document(ctx, a, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer rc.Close()
			hctx.SetHeader("Content-Type", "application/pdf")
			hctx.SetHeader("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": v.Title + ".pdf"}))
			if _, err := io.Copy(hctx.BodyWriter(), rc); err != nil {
				h.logger.Warn("contract download interrupted", "contract_id", v.ID, "error", err)
			}
		},
	}, nil
}
