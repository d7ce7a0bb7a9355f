package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/api"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

type upperConversation struct{}

func (upperConversation) SendSystemPrompt(context.Context, string) error { return nil }

func (upperConversation) SendUserMessage(_ context.Context, text string) (*upstream.Reply, error) {
	return &upstream.Reply{Text: strings.ToUpper(text)}, nil
}

func newBridge(t *testing.T) *client.Client {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry, err := modes.New("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := coordinator.New(store.NewSessionStore(db, registry), store.NewMessageStore(db), registry, upperConversation{}, logger)
	router := api.NewRouter(db, coord, registry, nil, api.Options{
		Model:            "m",
		UpstreamTimeout:  5 * time.Second,
		CompletionsRPS:   100,
		CompletionsBurst: 100,
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return client.New(srv.URL, "")
}

// run feeds lines to a fresh server and returns the decoded responses.
func run(t *testing.T, c *client.Client, lines ...string) []Response {
	t.Helper()
	var out bytes.Buffer
	s := NewServer(c, &out, "test")
	require.NoError(t, s.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n"))))

	var responses []Response
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for sc.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func toolCall(id int, name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	return string(data)
}

func toolText(t *testing.T, resp Response) (string, bool) {
	t.Helper()
	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res CallToolResult
	require.NoError(t, json.Unmarshal(data, &res))
	require.Len(t, res.Content, 1)
	return res.Content[0].Text, res.IsError
}

func TestProtocolHandshake(t *testing.T) {
	responses := run(t, nil,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"p","method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`not json`,
	)
	require.Len(t, responses, 5, "the notification gets no response")

	assert.JSONEq(t, `1`, string(responses[0].ID))
	assert.Contains(t, mustJSON(t, responses[0].Result), `"protocolVersion":"2024-11-05"`)

	assert.Contains(t, mustJSON(t, responses[1].Result), `"chat_send"`)
	assert.JSONEq(t, `"p"`, string(responses[2].ID))

	require.NotNil(t, responses[3].Error)
	assert.Equal(t, codeMethodNotFound, responses[3].Error.Code)
	require.NotNil(t, responses[4].Error)
	assert.Equal(t, codeParseError, responses[4].Error.Code)
}

func TestToolsDriveTheBridge(t *testing.T) {
	c := newBridge(t)

	responses := run(t, c, toolCall(1, "chat_create", map[string]any{"description": "via mcp", "mode": "Ask"}))
	text, isErr := toolText(t, responses[0])
	require.False(t, isErr, text)
	var created map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &created))
	chatID := created["chat_id"]
	require.NotEmpty(t, chatID)

	responses = run(t, c,
		toolCall(2, "chat_send", map[string]any{"message": "too early"}),
		toolCall(3, "chat_activate", map[string]any{"chat_id": chatID}),
		toolCall(4, "chat_send", map[string]any{"message": "hello"}),
		toolCall(5, "chat_set_mode", map[string]any{"chat_id": chatID, "mode": "Nope"}),
		toolCall(6, "chat_history", map[string]any{"chat_id": chatID, "limit": 10}),
		toolCall(7, "chat_activate", map[string]any{}),
		toolCall(8, "chat_deactivate", nil),
		toolCall(9, "chat_delete", map[string]any{"chat_id": chatID}),
		toolCall(10, "chat_list", nil),
		toolCall(11, "no_such_tool", nil),
	)
	require.Len(t, responses, 10)

	text, isErr = toolText(t, responses[0])
	assert.True(t, isErr)
	assert.Contains(t, text, "no_active_session")

	text, isErr = toolText(t, responses[1])
	require.False(t, isErr, text)
	assert.Contains(t, text, `"state": "active_ready"`)

	text, isErr = toolText(t, responses[2])
	require.False(t, isErr, text)
	assert.Equal(t, "HELLO", text)

	text, isErr = toolText(t, responses[3])
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid_mode")

	text, isErr = toolText(t, responses[4])
	require.False(t, isErr, text)
	assert.Contains(t, text, `"total_messages": 3`)

	text, isErr = toolText(t, responses[5])
	assert.True(t, isErr)
	assert.Equal(t, "chat_id is required", text)

	_, isErr = toolText(t, responses[6])
	assert.False(t, isErr)
	_, isErr = toolText(t, responses[7])
	assert.False(t, isErr)

	text, isErr = toolText(t, responses[8])
	require.False(t, isErr, text)
	assert.Equal(t, "[]", text)

	text, isErr = toolText(t, responses[9])
	assert.True(t, isErr)
	assert.Equal(t, "unknown tool: no_such_tool", text)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
