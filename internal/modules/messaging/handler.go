package messaging

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
	auth := h.guards.Authenticated()
	tags := []string{"Messages"}

	huma.Register(api, huma.Operation{
		OperationID:   "messages-send",
		Method:        http.MethodPost,
		Path:          "/internal-messages/send",
		Summary:       "Send an internal message",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
		Middlewares:   auth,
	}, h.SendHandler)

	for _, l := range []struct {
		id, path, summary string
		filter            ConversationFilter
	}{
		{"messages-inbox", "/internal-messages/inbox", "List conversations with received messages", ConversationFilter{Box: BoxInbox}},
		{"messages-sent", "/internal-messages/sent", "List conversations with sent messages", ConversationFilter{Box: BoxSent}},
		{"messages-archived", "/internal-messages/conversations/archived", "List archived conversations", ConversationFilter{Box: BoxAll, Archived: ArchivedOnly}},
	} {
		huma.Register(api, huma.Operation{
			OperationID: l.id,
			Method:      http.MethodGet,
			Path:        l.path,
			Summary:     l.summary,
			Tags:        tags,
			Middlewares: auth,
		}, h.listHandler(l.filter))
	}

	huma.Register(api, huma.Operation{
		OperationID: "messages-conversations",
		Method:      http.MethodGet,
		Path:        "/internal-messages/conversations",
		Summary:     "List conversations",
		Tags:        tags,
		Middlewares: auth,
	}, h.ConversationsHandler)

	huma.Register(api, huma.Operation{
		OperationID: "messages-conversation",
		Method:      http.MethodGet,
		Path:        "/internal-messages/conversation/{conversationId}",
		Summary:     "Open a conversation",
		Tags:        tags,
		Middlewares: auth,
	}, h.OpenConversationHandler)

	huma.Register(api, huma.Operation{
		OperationID: "messages-read",
		Method:      http.MethodPatch,
		Path:        "/internal-messages/{id}/read",
		Summary:     "Mark a received message as read",
		Tags:        tags,
		Middlewares: auth,
	}, h.MarkReadHandler)

	// The singular path is the one the web client has always called.
	for prefix, suffix := range map[string]string{"conversations": "", "conversation": "-legacy"} {
		path := "/internal-messages/" + prefix + "/{conversationId}/archive"
		huma.Register(api, huma.Operation{
			OperationID: "messages-archive" + suffix,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     "Archive a conversation",
			Tags:        tags,
			Middlewares: auth,
		}, h.ArchiveHandler)

		huma.Register(api, huma.Operation{
			OperationID: "messages-unarchive" + suffix,
			Method:      http.MethodDelete,
			Path:        path,
			Summary:     "Unarchive a conversation",
			Tags:        tags,
			Middlewares: auth,
		}, h.UnarchiveHandler)
	}

	huma.Register(api, huma.Operation{
		OperationID: "messages-unread-count",
		Method:      http.MethodGet,
		Path:        "/internal-messages/unread-count",
		Summary:     "Count unread messages",
		Tags:        tags,
		Middlewares: auth,
	}, h.UnreadCountHandler)
}

func caller(ctx context.Context) (string, error) {
	id, ok := contextx.IdentityFrom(ctx)
	if !ok {
		return "", apphttpx.UnauthorizedProblem(ctx, "invalid authentication context")
	}
	return id.UserID, nil
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

// SendRequest leaves presence checks to the validator so that a missing field
// is a 400 listing every absent field.
type SendRequest struct {
	Body struct {
		RecipientUser string `json:"recipientUser" required:"false" validate:"required"`
		Subject       string `json:"subject" required:"false" validate:"required"`
		Content       string `json:"content" required:"false" validate:"required"`
		ParentMessage string `json:"parentMessage,omitempty"`
	}
}

type SendResponse struct {
	Body struct {
		Message string     `json:"message"`
		Data    MessageDTO `json:"data"`
	}
}

func (h *Handler) SendHandler(ctx context.Context, input *SendRequest) (*SendResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	v, err := h.service.Send(ctx, userID, SendInput{
		RecipientID:     input.Body.RecipientUser,
		Subject:         input.Body.Subject,
		Content:         input.Body.Content,
		ParentMessageID: input.Body.ParentMessage,
	})
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &SendResponse{}
	resp.Body.Message = "Message envoyé."
	resp.Body.Data = v.DTO()
	return resp, nil
}

type ConversationDTO struct {
	MessageDTO
	ThreadCount    int `json:"threadCount"`
	UnreadInThread int `json:"unreadInThread"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type PageRequest struct {
	Page int `query:"page" default:"1" minimum:"1"`
}

type ConversationsRequest struct {
	Page     int           `query:"page" default:"1" minimum:"1"`
	Archived ArchiveFilter `query:"archived" default:"exclude" enum:"exclude,include,only"`
}

type ConversationsResponse struct {
	Body struct {
		Messages   []ConversationDTO `json:"messages"`
		Pagination Pagination        `json:"pagination"`
	}
}

func (h *Handler) ConversationsHandler(ctx context.Context, input *ConversationsRequest) (*ConversationsResponse, error) {
	return h.list(ctx, ConversationFilter{Box: BoxAll, Archived: input.Archived, Page: input.Page})
}

func (h *Handler) listHandler(f ConversationFilter) func(context.Context, *PageRequest) (*ConversationsResponse, error) {
	return func(ctx context.Context, input *PageRequest) (*ConversationsResponse, error) {
		f.Page = input.Page
		return h.list(ctx, f)
	}
}

func (h *Handler) list(ctx context.Context, f ConversationFilter) (*ConversationsResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	f.Page = max(f.Page, 1)
	rows, total, err := h.service.ListConversations(ctx, userID, f)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}

	resp := &ConversationsResponse{}
	resp.Body.Messages = make([]ConversationDTO, 0, len(rows))
	for _, c := range rows {
		resp.Body.Messages = append(resp.Body.Messages, ConversationDTO{
			MessageDTO:     c.DTO(),
			ThreadCount:    c.ThreadCount,
			UnreadInThread: c.UnreadInThread,
		})
	}
	resp.Body.Pagination = Pagination{
		Page:  f.Page,
		Limit: PageSize,
		Total: total,
		Pages: (total + PageSize - 1) / PageSize,
	}
	return resp, nil
}

type ConversationRequest struct {
	ConversationID string `path:"conversationId" format:"uuid"`
}

type ThreadResponse struct {
	Body struct {
		Messages []MessageDTO `json:"messages"`
	}
}

func (h *Handler) OpenConversationHandler(ctx context.Context, input *ConversationRequest) (*ThreadResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := h.service.OpenConversation(ctx, userID, input.ConversationID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ThreadResponse{}
	resp.Body.Messages = make([]MessageDTO, 0, len(thread))
	for _, v := range thread {
		resp.Body.Messages = append(resp.Body.Messages, v.DTO())
	}
	return resp, nil
}

type MarkReadRequest struct {
	ID string `path:"id" format:"uuid"`
}

func (h *Handler) MarkReadHandler(ctx context.Context, input *MarkReadRequest) (*MessageResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.MarkRead(ctx, input.ID, userID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("Message marqué comme lu."), nil
}

func (h *Handler) ArchiveHandler(ctx context.Context, input *ConversationRequest) (*MessageResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Archive(ctx, userID, input.ConversationID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("Conversation archivée."), nil
}

func (h *Handler) UnarchiveHandler(ctx context.Context, input *ConversationRequest) (*MessageResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Unarchive(ctx, userID, input.ConversationID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("Conversation désarchivée."), nil
}

type UnreadCountResponse struct {
	Body struct {
		Count int `json:"count"`
	}
}

func (h *Handler) UnreadCountHandler(ctx context.Context, _ *struct{}) (*UnreadCountResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &UnreadCountResponse{}
	resp.Body.Count = n
	return resp, nil
}
