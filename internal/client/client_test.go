package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/api"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

type echoConversation struct{}

func (echoConversation) SendSystemPrompt(context.Context, string) error { return nil }

func (echoConversation) SendUserMessage(_ context.Context, text string) (*upstream.Reply, error) {
	return &upstream.Reply{Text: "echo " + text}, nil
}

func (echoConversation) HealthCheck(context.Context) error { return nil }

func newServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry, err := modes.New("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := coordinator.New(store.NewSessionStore(db, registry), store.NewMessageStore(db), registry, echoConversation{}, logger)

	router := api.NewRouter(db, coord, registry, echoConversation{}, api.Options{
		APIKey:           apiKey,
		Model:            "test-model",
		UpstreamTimeout:  5 * time.Second,
		CompletionsRPS:   100,
		CompletionsBurst: 100,
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t, "k")
	c := client.New(srv.URL+"/", "k")
	ctx := context.Background()

	id, err := c.CreateChat(ctx, "from client", "Debug")
	require.NoError(t, err)

	chats, err := c.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, id, chats[0].ID)

	_, err = c.Send(ctx, "hi")
	assert.ErrorIs(t, err, models.ErrNoActiveSession)

	require.NoError(t, c.Activate(ctx, id))
	active, err := c.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, active)

	resp, err := c.Send(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", resp.Choices[0].Message.Content)
	assert.Equal(t, "test-model", resp.Model)

	info, err := c.SetMode(ctx, id, "Ask")
	require.NoError(t, err)
	assert.Equal(t, "Ask", info.Mode)

	_, err = c.SetMode(ctx, id, "Poetry")
	assert.ErrorIs(t, err, models.ErrInvalidMode)

	sess, err := c.UpdateDescription(ctx, id, "relabeled")
	require.NoError(t, err)
	assert.Equal(t, "relabeled", sess.Description)

	hist, err := c.History(ctx, id, 2)
	require.NoError(t, err)
	assert.Len(t, hist.Messages, 2)
	assert.Equal(t, 4, hist.TotalMessages, "debug prompt, user, assistant, ask prompt")

	n, err := c.ClearHistory(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	modeList, err := c.Modes(ctx)
	require.NoError(t, err)
	assert.Len(t, modeList, 5)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	require.NotNil(t, health.ActiveChatID)

	require.NoError(t, c.Deactivate(ctx))
	active, err = c.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, c.DeleteChat(ctx, id))
	_, err = c.GetChat(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestClientUnauthorized(t *testing.T) {
	srv := newServer(t, "k")
	c := client.New(srv.URL, "wrong")

	_, err := c.ListChats(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)
}
