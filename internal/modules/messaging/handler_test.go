package messaging

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

// ownSessions accepts any session id of the form "auth:<userID>".
type ownSessions struct{}

func (ownSessions) Touch(_ context.Context, id string) (*session.Session, error) {
	return &session.Session{ID: id, UserID: id[len("auth:"):]}, nil
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := authtoken.Issue("secret", time.Hour, time.Now(), authtoken.Claims{
		UserID: userID, Role: role, SessionID: "auth:" + userID,
	})
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func TestMessagingRoutes(t *testing.T) {
	f := newFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, api := humatest.New(t)
	NewHandler(f.svc, logger, middleware.NewGuards("secret", ownSessions{}, logger)).RegisterRoutes(api)

	ada := bearer(t, adaID, "administrateur")
	grace := bearer(t, graceID, "apprenant")

	resp := api.Post("/internal-messages/send", map[string]any{"recipientUser": graceID, "subject": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Post("/internal-messages/send", ada, map[string]any{"recipientUser": graceID, "subject": "Bienvenue"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"content":["champ requis"]`)

	resp = api.Post("/internal-messages/send", ada, map[string]any{"recipientUser": graceID, "subject": "Bienvenue", "content": "Bonjour Grace"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var sent struct {
		Data MessageDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sent))
	assert.Equal(t, sent.Data.ID, *sent.Data.ConversationID)
	assert.Equal(t, "Ada", sent.Data.Sender.FirstName)

	resp = api.Get("/internal-messages/unread-count", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":1`)

	resp = api.Get("/internal-messages/inbox", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"threadCount":1`)
	assert.Contains(t, resp.Body.String(), `"unreadInThread":1`)

	resp = api.Patch("/internal-messages/"+sent.Data.ID+"/read", ada)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.Get("/internal-messages/conversation/"+sent.Data.ID, grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"isRead":true`)

	resp = api.Post("/internal-messages/conversations/"+sent.Data.ID+"/archive", grace)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/internal-messages/conversations", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"messages":[]`)

	resp = api.Get("/internal-messages/conversations/archived", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":1`)

	resp = api.Get("/internal-messages/conversations?archived=include", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":1`)

	resp = api.Delete("/internal-messages/conversations/"+sent.Data.ID+"/archive", grace)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Post("/internal-messages/conversation/"+sent.Data.ID+"/archive", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = api.Get("/internal-messages/conversations/archived", grace)
	assert.Contains(t, resp.Body.String(), `"total":1`)
	resp = api.Delete("/internal-messages/conversation/"+sent.Data.ID+"/archive", grace)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = api.Get("/internal-messages/conversations/archived", grace)
	assert.Contains(t, resp.Body.String(), `"total":0`)

	resp = api.Get("/internal-messages/sent", ada)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Bienvenue")

	resp = api.Get("/internal-messages/conversation/not-a-uuid", grace)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
