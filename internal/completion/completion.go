// Package completion translates between OpenAI chat-completion payloads and
// the single-message exchange the coordinator performs.
package completion

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

const (
	ObjectChatCompletion = "chat.completion"
	FinishReasonStop     = "stop"
)

// Validate checks the request shape before anything reaches the coordinator.
func Validate(req *models.ChatCompletionRequest) error {
	if req.Stream {
		return fmt.Errorf("%w: streaming is not supported", models.ErrValidation)
	}
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", models.ErrValidation)
	}
	return nil
}

// LastUserText returns the text of the latest user message. Array content
// is flattened by joining its text blocks; image blocks are dropped.
func LastUserText(messages []models.ChatMessage) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != string(models.RoleUser) {
			continue
		}
		text := strings.TrimSpace(flatten(msg.Content))
		if text == "" {
			return "", fmt.Errorf("%w: latest user message has no text content", models.ErrValidation)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: no user message found", models.ErrValidation)
}

func flatten(c models.MessageContent) string {
	if c.Blocks == nil {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// EstimateTokens approximates a token count as one token per four
// characters, rounded up.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

// UsageFor returns the upstream's counts when it reported them and a local
// estimate otherwise.
func UsageFor(prompt string, reply *upstream.Reply) models.Usage {
	if reply.Usage != nil {
		return models.Usage{
			PromptTokens:     reply.Usage.Prompt,
			CompletionTokens: reply.Usage.Completion,
			TotalTokens:      reply.Usage.Total,
		}
	}
	p, c := EstimateTokens(prompt), EstimateTokens(reply.Text)
	return models.Usage{
		PromptTokens:     p,
		CompletionTokens: c,
		TotalTokens:      p + c,
		Estimated:        true,
	}
}

// NewResponse wraps one reply in a chat.completion envelope.
func NewResponse(model, chatID, prompt string, reply *upstream.Reply) *models.ChatCompletionResponse {
	return &models.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.Choice{{
			Index:        0,
			Message:      models.AssistantMessage{Role: string(models.RoleAssistant), Content: reply.Text},
			FinishReason: FinishReasonStop,
		}},
		Usage:  UsageFor(prompt, reply),
		ChatID: chatID,
	}
}
