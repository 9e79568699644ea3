package checklist

import (
	"context"
	"encoding/json"
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

func newTestAPI(t *testing.T, f *fixture) (humatest.TestAPI, string, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, api := humatest.New(t)
	NewHandler(f.svc, logger, middleware.NewGuards("secret", anySession{adminID}, logger)).RegisterRoutes(api)

	issue := func(role string) string {
		token, err := authtoken.Issue("secret", time.Hour, time.Now(), authtoken.Claims{
			UserID: adminID, Role: role, SessionID: "auth:1",
		})
		require.NoError(t, err)
		return "Authorization: Bearer " + token
	}
	return api, issue(middleware.RoleAdmin), issue("apprenant")
}

type checklistBody struct {
	Message   string `json:"message"`
	Checklist DTO    `json:"checklist"`
}

func TestChecklistRoutes(t *testing.T) {
	f := newFixture(t)
	api, asAdmin, asLearner := newTestAPI(t, f)

	resp := api.Get("/admin/checklists", asLearner)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.Post("/admin/checklists", asAdmin, map[string]any{"description": "Sans titre"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"title":["champ requis"]`)

	resp = api.Post("/admin/checklists", asAdmin, map[string]any{
		"title": "Suivi",
		"items": []map[string]any{{"notes": "sans texte"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Post("/admin/checklists", asAdmin, map[string]any{
		"title":            "Intégration de Grace",
		"linkedUserId":     graceID,
		"linkedProspectId": nil,
		"items": []map[string]any{
			{"text": "Envoyer la convention"},
			{"text": "Recueillir les attentes"},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var created checklistBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "Checklist créée.", created.Message)
	require.Len(t, created.Checklist.Items, 2)
	require.NotNil(t, created.Checklist.LinkedUser)
	assert.Equal(t, graceID, created.Checklist.LinkedUser.ID)
	id, item := created.Checklist.ID, created.Checklist.Items[0].ID

	resp = api.Patch("/admin/checklists/"+id+"/items/"+item, asAdmin, map[string]any{"isChecked": true, "notes": "Envoyée"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var patched checklistBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &patched))
	assert.Equal(t, "Item mis à jour.", patched.Message)
	assert.True(t, patched.Checklist.Items[0].IsChecked)
	assert.Equal(t, "Envoyée", patched.Checklist.Items[0].Notes)

	resp = api.Patch("/admin/checklists/"+id+"/items/"+missingID, asAdmin, map[string]any{"isChecked": true})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Put("/admin/checklists/"+id, asAdmin, map[string]any{
		"title": "Intégration",
		"items": []map[string]any{{"id": item, "text": "Envoyer la convention", "isChecked": true}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var replaced checklistBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &replaced))
	assert.Equal(t, "Checklist mise à jour.", replaced.Message)
	require.Len(t, replaced.Checklist.Items, 1)
	assert.Equal(t, item, replaced.Checklist.Items[0].ID)
	assert.Nil(t, replaced.Checklist.LinkedUser)

	resp = api.Put("/admin/checklists/"+missingID, asAdmin, map[string]any{"title": "Fantôme"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Get("/admin/checklists/"+id, asAdmin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"title":"Intégration"`)

	resp = api.Get("/admin/checklists?page=1&limit=10", asAdmin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":1`)

	resp = api.Delete("/admin/checklists/"+id, asAdmin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"message":"Checklist supprimée."`)

	resp = api.Delete("/admin/checklists/"+id, asAdmin)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
