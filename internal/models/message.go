package models

// MessageRole is the author of a logged message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

func (r MessageRole) IsValid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is one entry of a session's transcript.
type Message struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chat_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	CreatedAt int64          `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatHistory is returned from GET /v1/messages/{id}.
type ChatHistory struct {
	ChatID        string     `json:"chat_id"`
	Messages      []*Message `json:"messages"`
	TotalMessages int        `json:"total_messages"`
}
