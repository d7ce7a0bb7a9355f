package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

func TestOllamaReplaysHistory(t *testing.T) {
	var seen [][]ollamaMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		seen = append(seen, req.Messages)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:         ollamaMessage{Role: "assistant", Content: " answer \n"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	c := NewOllama(srv.URL+"/", "llama3")
	ctx := context.Background()

	require.NoError(t, c.SendSystemPrompt(ctx, "be terse"))
	assert.Empty(t, seen, "system prompt must not call the server")

	reply, err := c.SendUserMessage(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "answer", reply.Text)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, TokenCounts{Prompt: 12, Completion: 3, Total: 15}, *reply.Usage)

	_, err = c.SendUserMessage(ctx, "second")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, []ollamaMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "first"},
	}, seen[0])
	assert.Equal(t, []ollamaMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "second"},
	}, seen[1])
}

func TestOllamaFailedTurnNotCommitted(t *testing.T) {
	fail := true
	var last []ollamaMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		last = req.Messages
		if fail {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "ok"}, Done: true})
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "llama3")
	_, err := c.SendUserMessage(context.Background(), "lost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	fail = false
	reply, err := c.SendUserMessage(context.Background(), "kept")
	require.NoError(t, err)
	assert.Nil(t, reply.Usage, "no counts reported means no usage")
	assert.Equal(t, []ollamaMessage{{Role: "user", Content: "kept"}}, last)
}

func TestOllamaHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewOllama(srv.URL, "m").HealthCheck(context.Background()))

	srv.Close()
	assert.Error(t, NewOllama(srv.URL, "m").HealthCheck(context.Background()))
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("no credentials")
	u := Unavailable{Err: cause}

	err := u.SendSystemPrompt(context.Background(), "x")
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = u.SendUserMessage(context.Background(), "x")
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	assert.ErrorIs(t, Unavailable{}.HealthCheck(context.Background()), models.ErrUpstreamUnavailable)
}
