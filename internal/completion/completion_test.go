package completion

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

func decodeRequest(t *testing.T, body string) *models.ChatCompletionRequest {
	t.Helper()
	var req models.ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestLastUserText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "string content",
			body: `{"messages":[{"role":"user","content":"hello"}]}`,
			want: "hello",
		},
		{
			name: "latest user wins",
			body: `{"messages":[
				{"role":"system","content":"ignored"},
				{"role":"user","content":"first"},
				{"role":"assistant","content":"reply"},
				{"role":"user","content":"second"}]}`,
			want: "second",
		},
		{
			name: "text blocks joined, images dropped",
			body: `{"messages":[{"role":"user","content":[
				{"type":"text","text":"look at"},
				{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}},
				{"type":"text","text":"this"}]}]}`,
			want: "look at\nthis",
		},
		{
			name:    "images only",
			body:    `{"messages":[{"role":"user","content":[{"type":"image_url","image_url":{"url":"http://x/y.png"}}]}]}`,
			wantErr: true,
		},
		{
			name:    "null content",
			body:    `{"messages":[{"role":"user","content":null}]}`,
			wantErr: true,
		},
		{
			name:    "no user message",
			body:    `{"messages":[{"role":"system","content":"be nice"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := decodeRequest(t, tt.body)
			got, err := LastUserText(req.Messages)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentRejectsNumbers(t *testing.T) {
	var req models.ChatCompletionRequest
	err := json.Unmarshal([]byte(`{"messages":[{"role":"user","content":42}]}`), &req)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(&models.ChatCompletionRequest{}), models.ErrValidation)
	assert.ErrorIs(t, Validate(decodeRequest(t, `{"stream":true,"messages":[{"role":"user","content":"x"}]}`)), models.ErrValidation)
	assert.NoError(t, Validate(decodeRequest(t, `{"messages":[{"role":"user","content":"x"}]}`)))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("日本"), "counts runes, not bytes")
}

func TestNewResponse(t *testing.T) {
	t.Run("estimated usage", func(t *testing.T) {
		resp := NewResponse("gemini-2.5-flash", "chat-1", strings.Repeat("a", 8), &upstream.Reply{Text: "four"})

		assert.True(t, strings.HasPrefix(resp.ID, "chatcmpl-"))
		assert.Equal(t, "chat.completion", resp.Object)
		assert.NotZero(t, resp.Created)
		assert.Equal(t, "chat-1", resp.ChatID)
		require.Len(t, resp.Choices, 1)
		assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
		assert.Equal(t, "four", resp.Choices[0].Message.Content)
		assert.Equal(t, "stop", resp.Choices[0].FinishReason)
		assert.Equal(t, models.Usage{PromptTokens: 2, CompletionTokens: 1, TotalTokens: 3, Estimated: true}, resp.Usage)
	})

	t.Run("reported usage", func(t *testing.T) {
		reply := &upstream.Reply{Text: "ok", Usage: &upstream.TokenCounts{Prompt: 10, Completion: 2, Total: 12}}
		resp := NewResponse("m", "c", "prompt", reply)
		assert.Equal(t, models.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}, resp.Usage)
	})

	t.Run("envelope json", func(t *testing.T) {
		resp := NewResponse("m", "c", "p", &upstream.Reply{Text: "x"})
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Contains(t, raw, "system_fingerprint")
		assert.Nil(t, raw["system_fingerprint"])
		assert.Equal(t, true, raw["usage"].(map[string]any)["estimated"])
	})
}
