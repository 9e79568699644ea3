package training

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/authtoken"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/session"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anySession struct{ userID string }

func (s anySession) Touch(_ context.Context, id string) (*session.Session, error) {
	return &session.Session{ID: id, UserID: s.userID}, nil
}

func TestHandlerRoutes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	th, err := svc.CreateTheme(ctx, "Gériatrie", "soins")
	require.NoError(t, err)
	hidden, err := svc.CreateTraining(ctx, th.ID, sampleContent("Brouillon"), false)
	require.NoError(t, err)

	const adminID = "0190c6a4-0000-7000-8000-000000000001"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, api := humatest.New(t)
	NewHandler(svc, logger, middleware.NewGuards("secret", anySession{adminID}, logger)).RegisterRoutes(api)

	token, err := authtoken.Issue("secret", time.Hour, time.Now(), authtoken.Claims{
		UserID: adminID, Role: middleware.RoleAdmin, SessionID: "auth:1",
	})
	require.NoError(t, err)
	bearer := "Authorization: Bearer " + token

	resp := api.Get("/trainings/" + hidden.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Patch("/admin/trainings/"+hidden.ID+"/visibility", bearer, map[string]any{"isVisible": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Get("/trainings/" + hidden.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"theme":"Gériatrie"`)

	resp = api.Get("/trainings/themes")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Brouillon")

	resp = api.Post("/admin/trainings", map[string]any{"themeId": th.ID})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Delete("/admin/themes/"+th.ID, bearer)
	assert.Equal(t, http.StatusConflict, resp.Code)
}
