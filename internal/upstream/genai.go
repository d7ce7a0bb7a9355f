package upstream

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAI is a Conversation backed by one Gemini chat. The chat keeps its own
// history, so a system prompt sent once stays in effect for later turns.
type GenAI struct {
	client *genai.Client
	chat   *genai.Chat
	model  string
}

// NewGenAI opens a Gemini chat for model.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	chat, err := client.Chats.Create(ctx, model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create GenAI chat: %w", err)
	}

	return &GenAI{client: client, chat: chat, model: model}, nil
}

func (g *GenAI) SendSystemPrompt(ctx context.Context, text string) error {
	if _, err := g.chat.SendMessage(ctx, genai.Part{Text: text}); err != nil {
		return fmt.Errorf("genai system prompt: %w", err)
	}
	return nil
}

func (g *GenAI) SendUserMessage(ctx context.Context, text string) (*Reply, error) {
	resp, err := g.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, fmt.Errorf("genai send: %w", err)
	}

	reply := &Reply{Text: strings.TrimSpace(resp.Text())}
	if u := resp.UsageMetadata; u != nil && u.TotalTokenCount > 0 {
		reply.Usage = &TokenCounts{
			Prompt:     int(u.PromptTokenCount),
			Completion: int(u.CandidatesTokenCount),
			Total:      int(u.TotalTokenCount),
		}
	}
	return reply, nil
}

// HealthCheck reports whether the chat handle exists. It does not spend a
// request against the API quota.
func (g *GenAI) HealthCheck(context.Context) error {
	if g.chat == nil {
		return fmt.Errorf("genai chat not initialized")
	}
	return nil
}

func (g *GenAI) Model() string {
	return g.model
}
