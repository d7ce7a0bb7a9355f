package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Ollama is a Conversation backed by a local Ollama server. Ollama's chat
// endpoint is stateless, so the conversation keeps the history itself and
// replays it on every turn.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client

	mu      sync.Mutex
	history []ollamaMessage
}

func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // LLM generation can be slow
		},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// SendSystemPrompt appends a system message to the replayed history. Ollama
// applies it on the next chat call, so nothing goes over the wire here.
func (c *Ollama) SendSystemPrompt(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, ollamaMessage{Role: "system", Content: text})
	return nil
}

// SendUserMessage sends the history plus text to /api/chat. The exchange is
// only committed to the history when the call succeeds.
func (c *Ollama) SendUserMessage(ctx context.Context, text string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]ollamaMessage, 0, len(c.history)+1)
	messages = append(messages, c.history...)
	messages = append(messages, ollamaMessage{Role: "user", Content: text})

	data, err := json.Marshal(ollamaChatRequest{Model: c.model, Messages: messages, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	answer := strings.TrimSpace(result.Message.Content)
	c.history = append(messages, ollamaMessage{Role: "assistant", Content: answer})

	reply := &Reply{Text: answer}
	if result.PromptEvalCount > 0 || result.EvalCount > 0 {
		reply.Usage = &TokenCounts{
			Prompt:     result.PromptEvalCount,
			Completion: result.EvalCount,
			Total:      result.PromptEvalCount + result.EvalCount,
		}
	}
	return reply, nil
}

// HealthCheck verifies Ollama is reachable.
func (c *Ollama) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Ollama) Model() string {
	return c.model
}
