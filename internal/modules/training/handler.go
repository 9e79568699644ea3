package training

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

// Handler serves the public catalogue and its administration.
type Handler struct {
	service Service
	logger  *slog.Logger
	guards  middleware.Guards
}

func NewHandler(service Service, logger *slog.Logger, guards middleware.Guards) *Handler {
	return &Handler{service: service, logger: logger, guards: guards}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "trainings-catalogue",
		Method:      http.MethodGet,
		Path:        "/trainings/themes",
		Summary:     "List themes with their visible trainings",
		Tags:        []string{"Trainings"},
	}, h.CatalogueHandler)

	huma.Register(api, huma.Operation{
		OperationID: "trainings-get",
		Method:      http.MethodGet,
		Path:        "/trainings/{id}",
		Summary:     "Get a visible training",
		Tags:        []string{"Trainings"},
	}, h.GetTrainingHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-trainings-list",
		Method:      http.MethodGet,
		Path:        "/admin/trainings",
		Summary:     "List themes with all trainings",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.AdminCatalogueHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "admin-trainings-create",
		Method:        http.MethodPost,
		Path:          "/admin/trainings",
		Summary:       "Create a training in a theme",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.guards.AdminOnly(),
	}, h.CreateTrainingHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-trainings-update",
		Method:      http.MethodPut,
		Path:        "/admin/trainings/{id}",
		Summary:     "Replace a training, optionally moving it to another theme",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.UpdateTrainingHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-trainings-visibility",
		Method:      http.MethodPatch,
		Path:        "/admin/trainings/{id}/visibility",
		Summary:     "Show or hide a training",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.SetVisibilityHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-trainings-delete",
		Method:      http.MethodDelete,
		Path:        "/admin/trainings/{id}",
		Summary:     "Delete a training",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.DeleteTrainingHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "admin-themes-create",
		Method:        http.MethodPost,
		Path:          "/admin/themes",
		Summary:       "Create a theme",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.guards.AdminOnly(),
	}, h.CreateThemeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-themes-delete",
		Method:      http.MethodDelete,
		Path:        "/admin/themes/{id}",
		Summary:     "Delete an empty theme",
		Tags:        []string{"Admin"},
		Middlewares: h.guards.AdminOnly(),
	}, h.DeleteThemeHandler)
}

// --- DTOs ---

type TrainingDTO struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	PedagogicalObjectives []string  `json:"pedagogicalObjectives"`
	Program               []string  `json:"program"`
	PedagogicalMethods    []string  `json:"pedagogicalMethods"`
	Audience              string    `json:"audience"`
	Prerequisites         string    `json:"prerequisites"`
	EvaluationMethods     []string  `json:"evaluationMethods"`
	Trainer               string    `json:"trainer"`
	NumberOfTrainees      string    `json:"numberOfTrainees"`
	Duration              string    `json:"duration"`
	Quote                 string    `json:"quote"`
	IsVisible             bool      `json:"isVisible"`
	ThemeID               *string   `json:"themeId,omitempty"`
	Theme                 *string   `json:"theme,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func toTrainingDTO(t *Training) TrainingDTO {
	return TrainingDTO{
		ID:                    t.ID,
		Title:                 t.Title,
		PedagogicalObjectives: nonNil(t.PedagogicalObjectives),
		Program:               nonNil(t.Program),
		PedagogicalMethods:    nonNil(t.PedagogicalMethods),
		Audience:              t.Audience,
		Prerequisites:         t.Prerequisites,
		EvaluationMethods:     nonNil(t.EvaluationMethods),
		Trainer:               t.Trainer,
		NumberOfTrainees:      t.NumberOfTrainees,
		Duration:              t.Duration,
		Quote:                 t.Quote,
		IsVisible:             t.IsVisible,
		ThemeID:               t.ThemeID,
		Theme:                 t.ThemeTitle,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

type ThemeDTO struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Type      string        `json:"type"`
	Trainings []TrainingDTO `json:"trainings"`
}

func toThemeDTOs(themes []Theme) []ThemeDTO {
	out := make([]ThemeDTO, 0, len(themes))
	for _, th := range themes {
		dto := ThemeDTO{ID: th.ID, Title: th.Title, Type: th.Type, Trainings: make([]TrainingDTO, 0, len(th.Trainings))}
		for i := range th.Trainings {
			dto.Trainings = append(dto.Trainings, toTrainingDTO(&th.Trainings[i]))
		}
		out = append(out, dto)
	}
	return out
}

// TrainingBody is the editable content shared by create and update.
type TrainingBody struct {
	Title                 string   `json:"title" validate:"required"`
	PedagogicalObjectives []string `json:"pedagogicalObjectives" validate:"required,min=1,dive,required"`
	Program               []string `json:"program" validate:"required,min=1,dive,required"`
	PedagogicalMethods    []string `json:"pedagogicalMethods" validate:"required,min=1,dive,required"`
	Audience              string   `json:"audience" validate:"required"`
	Prerequisites         string   `json:"prerequisites" validate:"required"`
	EvaluationMethods     []string `json:"evaluationMethods" validate:"required,min=1,dive,required"`
	Trainer               string   `json:"trainer" validate:"required"`
	NumberOfTrainees      string   `json:"numberOfTrainees" validate:"required"`
	Duration              string   `json:"duration" validate:"required"`
	Quote                 string   `json:"quote" validate:"required"`
}

func (b TrainingBody) content() Content {
	return Content{
		Title:                 b.Title,
		PedagogicalObjectives: b.PedagogicalObjectives,
		Program:               b.Program,
		PedagogicalMethods:    b.PedagogicalMethods,
		Audience:              b.Audience,
		Prerequisites:         b.Prerequisites,
		EvaluationMethods:     b.EvaluationMethods,
		Trainer:               b.Trainer,
		NumberOfTrainees:      b.NumberOfTrainees,
		Duration:              b.Duration,
		Quote:                 b.Quote,
	}
}

type CatalogueResponse struct {
	Body struct {
		Themes []ThemeDTO `json:"themes"`
	}
}

type TrainingIDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type TrainingResponse struct {
	Body struct {
		Training TrainingDTO `json:"training"`
	}
}

type CreateTrainingRequest struct {
	Body struct {
		ThemeID   string `json:"themeId" format:"uuid"`
		IsVisible *bool  `json:"isVisible,omitempty"`
		TrainingBody
	}
}

type UpdateTrainingRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		ThemeID *string `json:"themeId,omitempty" format:"uuid"`
		TrainingBody
	}
}

type VisibilityRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		IsVisible bool `json:"isVisible"`
	}
}

type CreateThemeRequest struct {
	Body struct {
		Title string `json:"title" validate:"required"`
		Type  string `json:"type" validate:"required"`
	}
}

type ThemeResponse struct {
	Body struct {
		Theme ThemeDTO `json:"theme"`
	}
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

func trainingResponse(t *Training) *TrainingResponse {
	resp := &TrainingResponse{}
	resp.Body.Training = toTrainingDTO(t)
	return resp
}

// --- Handlers ---

func (h *Handler) CatalogueHandler(ctx context.Context, _ *struct{}) (*CatalogueResponse, error) {
	themes, err := h.service.Catalogue(ctx, false)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &CatalogueResponse{}
	resp.Body.Themes = toThemeDTOs(themes)
	return resp, nil
}

func (h *Handler) AdminCatalogueHandler(ctx context.Context, _ *struct{}) (*CatalogueResponse, error) {
	themes, err := h.service.Catalogue(ctx, true)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &CatalogueResponse{}
	resp.Body.Themes = toThemeDTOs(themes)
	return resp, nil
}

func (h *Handler) GetTrainingHandler(ctx context.Context, input *TrainingIDRequest) (*TrainingResponse, error) {
	t, err := h.service.GetTraining(ctx, input.ID, false)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return trainingResponse(t), nil
}

func (h *Handler) CreateTrainingHandler(ctx context.Context, input *CreateTrainingRequest) (*TrainingResponse, error) {
	if err := validation.ValidateStruct(&input.Body.TrainingBody); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	visible := input.Body.IsVisible == nil || *input.Body.IsVisible
	t, err := h.service.CreateTraining(ctx, input.Body.ThemeID, input.Body.content(), visible)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return trainingResponse(t), nil
}

func (h *Handler) UpdateTrainingHandler(ctx context.Context, input *UpdateTrainingRequest) (*TrainingResponse, error) {
	if err := validation.ValidateStruct(&input.Body.TrainingBody); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	t, err := h.service.UpdateTraining(ctx, input.ID, input.Body.ThemeID, input.Body.content())
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return trainingResponse(t), nil
}

func (h *Handler) SetVisibilityHandler(ctx context.Context, input *VisibilityRequest) (*TrainingResponse, error) {
	t, err := h.service.SetVisibility(ctx, input.ID, input.Body.IsVisible)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return trainingResponse(t), nil
}

func (h *Handler) DeleteTrainingHandler(ctx context.Context, input *TrainingIDRequest) (*MessageResponse, error) {
	if err := h.service.DeleteTraining(ctx, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("training deleted"), nil
}

func (h *Handler) CreateThemeHandler(ctx context.Context, input *CreateThemeRequest) (*ThemeResponse, error) {
	if err := validation.ValidateStruct(&input.Body); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	th, err := h.service.CreateTheme(ctx, input.Body.Title, input.Body.Type)
	if err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	resp := &ThemeResponse{}
	resp.Body.Theme = toThemeDTOs([]Theme{*th})[0]
	return resp, nil
}

func (h *Handler) DeleteThemeHandler(ctx context.Context, input *TrainingIDRequest) (*MessageResponse, error) {
	if err := h.service.DeleteTheme(ctx, input.ID); err != nil {
		return nil, apphttpx.ToProblem(ctx, err)
	}
	return message("theme deleted"), nil
}
