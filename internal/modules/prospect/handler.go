package prospect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
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
	// --- Public lead capture ---
	huma.Register(api, huma.Operation{
		OperationID: "messages-new",
		Method:      http.MethodPost,
		Path:        "/messages/new",
		Summary:     "Submit the contact form",
		Tags:        []string{"Public"},
		Middlewares: h.guards.Public(),
	}, h.ContactFormHandler)

	huma.Register(api, huma.Operation{
		OperationID: "messages-catalogue",
		Method:      http.MethodGet,
		Path:        "/messages/catalogue",
		Summary:     "Receive the training catalogue by email",
		Tags:        []string{"Public"},
		Middlewares: h.guards.Public(),
	}, h.CatalogueHandler)

	// --- Prospects ---
	huma.Register(api, huma.Operation{
		OperationID: "admin-prospects-list",
		Method:      http.MethodGet,
		Path:        "/admin/prospects",
		Summary:     "List prospects",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-prospects-get",
		Method:      http.MethodGet,
		Path:        "/admin/prospects/{id}",
		Summary:     "Get a prospect with its interaction history",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-prospects-status",
		Method:      http.MethodPatch,
		Path:        "/admin/prospects/{id}/status",
		Summary:     "Change a prospect's status",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.StatusHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-prospects-contact",
		Method:      http.MethodPost,
		Path:        "/admin/prospects/{id}/contact",
		Summary:     "Email a prospect",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ContactHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-prospects-convert",
		Method:      http.MethodPost,
		Path:        "/admin/prospects/{id}/convert",
		Summary:     "Invite a prospect with an activation code",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ConvertHandler)

	// --- Contact messages ---
	huma.Register(api, huma.Operation{
		OperationID: "admin-contact-messages-list",
		Method:      http.MethodGet,
		Path:        "/admin/contact-messages",
		Summary:     "List contact form submissions",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.ListContactMessagesHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-contact-messages-read",
		Method:      http.MethodPatch,
		Path:        "/admin/contact-messages/{id}/read",
		Summary:     "Mark a contact message as read",
		Tags:        []string{"Prospects"},
		Middlewares: h.guards.AdminOnly(),
	}, h.MarkContactMessageReadHandler)
}

func requestMeta(ctx context.Context) Meta {
	m := contextx.RequestMetaFrom(ctx)
	return Meta{IP: m.IP, UserAgent: m.UserAgent}
}

// --- DTOs ---

type InteractionDTO struct {
	ID        string          `json:"id"`
	Type      InteractionType `json:"type"`
	Data      map[string]any  `json:"data"`
	UserAgent string          `json:"userAgent,omitempty"`
	IPAddress string          `json:"ipAddress,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ProspectDTO struct {
	ID                   string           `json:"id"`
	FirstName            string           `json:"firstName"`
	LastName             string           `json:"lastName"`
	Email                string           `json:"email"`
	Source               Source           `json:"source"`
	Status               Status           `json:"status"`
	HasContactMessage    bool             `json:"hasContactMessage"`
	HasCatalogueDownload bool             `json:"hasCatalogueDownload"`
	InteractionCount     int              `json:"interactionCount"`
	LastInteractionDate  time.Time        `json:"lastInteractionDate"`
	CreatedAt            time.Time        `json:"createdAt"`
	HasAccount           *bool            `json:"hasAccount,omitempty"`
	Interactions         []InteractionDTO `json:"interactions,omitempty"`
}

func toProspectDTO(p *Prospect) ProspectDTO {
	return ProspectDTO{
		ID:                   p.ID,
		FirstName:            p.FirstName,
		LastName:             p.LastName,
		Email:                p.Email,
		Source:               p.Source,
		Status:               p.Status,
		HasContactMessage:    p.HasContactMessage,
		HasCatalogueDownload: p.HasCatalogueDownload,
		InteractionCount:     p.InteractionCount,
		LastInteractionDate:  p.LastInteractionDate,
		CreatedAt:            p.CreatedAt,
	}
}

func withHistory(p *Prospect, hasAccount bool, interactions []Interaction) ProspectDTO {
	dto := toProspectDTO(p)
	dto.HasAccount = &hasAccount
	dto.Interactions = make([]InteractionDTO, 0, len(interactions))
	for _, in := range interactions {
		dto.Interactions = append(dto.Interactions, InteractionDTO{
			ID:        in.ID,
			Type:      in.Type,
			Data:      in.Data,
			UserAgent: in.UserAgent,
			IPAddress: in.IPAddress,
			CreatedAt: in.CreatedAt,
		})
	}
	return dto
}

type ContactMessageDTO struct {
	ID                   string    `json:"id"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Email                string    `json:"email"`
	Message              string    `json:"message"`
	InterestedFormations []string  `json:"interestedFormations"`
	IsRead               bool      `json:"isRead"`
	CreatedAt            time.Time `json:"createdAt"`
}

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

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func paginate(page, limit, total int) Pagination {
	return Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
}

// --- Public handlers ---

type ContactFormRequest struct {
	Body struct {
		FirstName            string   `json:"firstName" validate:"required"`
		LastName             string   `json:"lastName" validate:"required"`
		Email                string   `json:"email" validate:"required,email"`
		Message              string   `json:"message" validate:"required"`
		InterestedFormations []string `json:"interestedFormations,omitempty"`
	}
}

func (h *Handler) ContactFormHandler(ctx context.Context, input *ContactFormRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	b := input.Body
	_, err := h.service.SubmitContactForm(ctx, ContactForm{
		FirstName:            b.FirstName,
		LastName:             b.LastName,
		Email:                b.Email,
		Message:              b.Message,
		InterestedFormations: b.InterestedFormations,
	}, requestMeta(ctx))
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("Votre message a été envoyé avec succès. Nous vous répondrons dans les plus brefs délais."), nil
}

type CatalogueQuery struct {
	Email                string `query:"email" required:"true"`
	FirstName            string `query:"firstName" required:"true"`
	LastName             string `query:"lastName" required:"true"`
	InterestedFormations string `query:"interestedFormations"`
}

func (h *Handler) CatalogueHandler(ctx context.Context, input *CatalogueQuery) (*MessageResponse, error) {
	fields := struct {
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"firstName" validate:"required"`
		LastName  string `json:"lastName" validate:"required"`
	}{input.Email, input.FirstName, input.LastName}
	if err := validation.ValidateStruct(&fields); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	err := h.service.RequestCatalogue(ctx, CatalogueRequest{
		FirstName:            input.FirstName,
		LastName:             input.LastName,
		Email:                input.Email,
		InterestedFormations: parseFormations(input.InterestedFormations),
	}, requestMeta(ctx))
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("Le catalogue a été envoyé avec succès à votre adresse email. Merci de votre intérêt pour nos formations !"), nil
}

// parseFormations accepts a JSON array or a single plain value.
func parseFormations(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return []string{raw}
}

// --- Admin handlers ---

type ListRequest struct {
	Status string `query:"status" enum:"nouveau,contacte,converti,archive"`
	Source string `query:"source" enum:"contact,catalogue,mixed"`
	Search string `query:"search"`
	Page   int    `query:"page" default:"1" minimum:"1"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type ListResponse struct {
	Body struct {
		Prospects  []ProspectDTO `json:"prospects"`
		Pagination Pagination    `json:"pagination"`
	}
}

func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	rows, total, err := h.service.List(ctx, ListFilter{
		Status: Status(input.Status),
		Source: Source(input.Source),
		Search: input.Search,
		Limit:  uint64(limit),
		Offset: uint64((page - 1) * limit),
	})
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &ListResponse{}
	resp.Body.Prospects = make([]ProspectDTO, 0, len(rows))
	for i := range rows {
		resp.Body.Prospects = append(resp.Body.Prospects, withHistory(&rows[i].Prospect, rows[i].HasAccount, rows[i].Interactions))
	}
	resp.Body.Pagination = paginate(page, limit, total)
	return resp, nil
}

type IDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type ProspectResponse struct {
	Body struct {
		Prospect ProspectDTO `json:"prospect"`
	}
}

func prospectResponse(dto ProspectDTO) *ProspectResponse {
	resp := &ProspectResponse{}
	resp.Body.Prospect = dto
	return resp
}

func (h *Handler) GetHandler(ctx context.Context, input *IDRequest) (*ProspectResponse, error) {
	d, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return prospectResponse(withHistory(&d.Prospect, d.HasAccount, d.Interactions)), nil
}

type StatusRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		Status Status `json:"status" enum:"nouveau,contacte,converti,archive"`
	}
}

func (h *Handler) StatusHandler(ctx context.Context, input *StatusRequest) (*ProspectResponse, error) {
	p, err := h.service.TransitionStatus(ctx, input.ID, input.Body.Status)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return prospectResponse(toProspectDTO(p)), nil
}

type ContactRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		Subject string `json:"subject" validate:"required"`
		Message string `json:"message" validate:"required"`
	}
}

func (h *Handler) ContactHandler(ctx context.Context, input *ContactRequest) (*ProspectResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	p, err := h.service.Contact(ctx, input.ID, input.Body.Subject, input.Body.Message)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return prospectResponse(toProspectDTO(p)), nil
}

type ConvertRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		Role user.Role `json:"role" enum:"apprenant,professionnel"`
	}
}

type ConvertResponse struct {
	Body struct {
		Prospect       ProspectDTO `json:"prospect"`
		ActivationCode struct {
			ID        string    `json:"id"`
			Code      string    `json:"code"`
			Role      user.Role `json:"role"`
			ExpiresAt time.Time `json:"expiresAt"`
		} `json:"activationCode"`
	}
}

func (h *Handler) ConvertHandler(ctx context.Context, input *ConvertRequest) (*ConvertResponse, error) {
	admin, ok := contextx.IdentityFrom(ctx)
	if !ok {
		return nil, apphttpx.UnauthorizedProblem(ctx, "invalid authentication context")
	}
	c, err := h.service.Convert(ctx, admin.UserID, input.ID, input.Body.Role)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ConvertResponse{}
	resp.Body.Prospect = toProspectDTO(c.Prospect)
	resp.Body.ActivationCode.ID = c.Code.ID
	resp.Body.ActivationCode.Code = c.Code.Code
	resp.Body.ActivationCode.Role = c.Code.Role
	resp.Body.ActivationCode.ExpiresAt = c.Code.ExpiresAt
	return resp, nil
}

type ListContactMessagesRequest struct {
	Unread bool `query:"unread"`
	Page   int  `query:"page" default:"1" minimum:"1"`
	Limit  int  `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type ContactMessagesResponse struct {
	Body struct {
		Messages   []ContactMessageDTO `json:"messages"`
		Pagination Pagination          `json:"pagination"`
	}
}

func (h *Handler) ListContactMessagesHandler(ctx context.Context, input *ListContactMessagesRequest) (*ContactMessagesResponse, error) {
	page, limit := max(input.Page, 1), max(input.Limit, 1)
	msgs, total, err := h.service.ListContactMessages(ctx, input.Unread, uint64(limit), uint64((page-1)*limit))
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ContactMessagesResponse{}
	resp.Body.Messages = make([]ContactMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		resp.Body.Messages = append(resp.Body.Messages, ContactMessageDTO{
			ID:                   m.ID,
			FirstName:            m.FirstName,
			LastName:             m.LastName,
			Email:                m.Email,
			Message:              m.Message,
			InterestedFormations: nonNil(m.InterestedFormations),
			IsRead:               m.IsRead,
			CreatedAt:            m.CreatedAt,
		})
	}
	resp.Body.Pagination = paginate(page, limit, total)
	return resp, nil
}

func (h *Handler) MarkContactMessageReadHandler(ctx context.Context, input *IDRequest) (*MessageResponse, error) {
	if err := h.service.MarkContactMessageRead(ctx, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("contact message marked as read"), nil
}
