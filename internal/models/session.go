package models

// ChatSession is one logical conversation persisted in the session store.
type ChatSession struct {
	ID              string `json:"chat_id"`
	Description     string `json:"description"`
	Mode            string `json:"mode"`
	PromptDelivered bool   `json:"prompt_delivered"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// ChatInfo is the list/detail view of a session, including its coordinator state.
type ChatInfo struct {
	ChatSession
	State string `json:"state"`
}

// Mode is a named preset whose prompt primes the upstream conversation.
type Mode struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"-"`
	Default     bool   `json:"default"`
	// Source is "builtin" or the path of the file that defined the mode.
	Source string `json:"source"`
}

// --- Request / Response types ---

// CreateChatRequest is the payload for POST /v1/chats.
type CreateChatRequest struct {
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

// CreateChatResponse is returned from POST /v1/chats.
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// SetActiveChatRequest is the payload for POST /v1/chats/active.
// A null chat_id deactivates.
type SetActiveChatRequest struct {
	ChatID *string `json:"chat_id"`
}

// ActiveChatResponse is returned from GET and POST /v1/chats/active.
type ActiveChatResponse struct {
	ActiveChatID *string `json:"active_chat_id"`
	Message      string  `json:"message,omitempty"`
}

// UpdateChatModeRequest is the payload for PUT /v1/chats/{id}/mode.
type UpdateChatModeRequest struct {
	Mode string `json:"mode"`
}

// UpdateChatRequest is the payload for PATCH /v1/chats/{id}.
type UpdateChatRequest struct {
	Description *string `json:"description"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status       string       `json:"status"`
	DB           ServiceCheck `json:"db"`
	Upstream     ServiceCheck `json:"upstream"`
	SessionCount int          `json:"session_count"`
	ActiveChatID *string      `json:"active_chat_id"`
}

type ServiceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
