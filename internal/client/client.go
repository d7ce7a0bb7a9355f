// Package client is a typed Go client for the bridge HTTP API. The CLI, the
// MCP adapter and the terminal UI all talk to the server through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the server at baseURL. An empty apiKey sends no
// credentials.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 180 * time.Second, // completions wait on the upstream model
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bridge: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bridge: %s: %s", e.Code, e.Message)
}

// Is lets callers match server error codes against the sentinels in models.
func (e *APIError) Is(target error) bool {
	switch target {
	case models.ErrNotFound:
		return e.Code == "not_found"
	case models.ErrInvalidMode:
		return e.Code == "invalid_mode"
	case models.ErrNoActiveSession:
		return e.Code == "no_active_session"
	case models.ErrUpstreamUnavailable:
		return e.Code == "upstream_unavailable"
	case models.ErrValidation:
		return e.Code == "validation_error"
	}
	return false
}

func (c *Client) ListChats(ctx context.Context) ([]models.ChatInfo, error) {
	var chats []models.ChatInfo
	err := c.do(ctx, http.MethodGet, "/v1/chats", nil, &chats)
	return chats, err
}

// CreateChat returns the id of the new chat. Empty mode selects the server
// default.
func (c *Client) CreateChat(ctx context.Context, description, mode string) (string, error) {
	var resp models.CreateChatResponse
	err := c.do(ctx, http.MethodPost, "/v1/chats", models.CreateChatRequest{Description: description, Mode: mode}, &resp)
	return resp.ChatID, err
}

func (c *Client) GetChat(ctx context.Context, id string) (*models.ChatInfo, error) {
	var info models.ChatInfo
	if err := c.do(ctx, http.MethodGet, "/v1/chats/"+url.PathEscape(id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) UpdateDescription(ctx context.Context, id, description string) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := c.do(ctx, http.MethodPatch, "/v1/chats/"+url.PathEscape(id), models.UpdateChatRequest{Description: &description}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) SetMode(ctx context.Context, id, mode string) (*models.ChatInfo, error) {
	var info models.ChatInfo
	err := c.do(ctx, http.MethodPut, "/v1/chats/"+url.PathEscape(id)+"/mode", models.UpdateChatModeRequest{Mode: mode}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/chats/"+url.PathEscape(id), nil, nil)
}

// Active returns the active chat id, or "" when none is active.
func (c *Client) Active(ctx context.Context) (string, error) {
	var resp models.ActiveChatResponse
	if err := c.do(ctx, http.MethodGet, "/v1/chats/active", nil, &resp); err != nil {
		return "", err
	}
	if resp.ActiveChatID == nil {
		return "", nil
	}
	return *resp.ActiveChatID, nil
}

func (c *Client) Activate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/chats/active", models.SetActiveChatRequest{ChatID: &id}, nil)
}

func (c *Client) Deactivate(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/chats/active", models.SetActiveChatRequest{}, nil)
}

// Send posts one user message to the active chat.
func (c *Client) Send(ctx context.Context, text string) (*models.ChatCompletionResponse, error) {
	req := models.ChatCompletionRequest{
		Messages: []models.ChatMessage{{Role: string(models.RoleUser), Content: models.MessageContent{Text: text}}},
	}
	var resp models.ChatCompletionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to limit logged messages; zero uses the server default.
func (c *Client) History(ctx context.Context, id string, limit int) (*models.ChatHistory, error) {
	path := "/v1/messages/" + url.PathEscape(id)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var hist models.ChatHistory
	if err := c.do(ctx, http.MethodGet, path, nil, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}

func (c *Client) ClearHistory(ctx context.Context, id string) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, "/v1/messages/"+url.PathEscape(id), nil, &resp)
	return resp.Deleted, err
}

func (c *Client) Modes(ctx context.Context) ([]models.Mode, error) {
	var list []models.Mode
	err := c.do(ctx, http.MethodGet, "/v1/modes", nil, &list)
	return list, err
}

// Health returns the health report. A degraded server answers 503 with a
// body, so the report is returned alongside the error.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &health)
	if err != nil && health.Status == "" {
		return nil, err
	}
	return &health, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &env) == nil && env.Error.Code != "" {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		// Health reports carry a useful body even when degraded.
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable && apiErr.Code == "" {
			json.Unmarshal(respBody, out)
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
