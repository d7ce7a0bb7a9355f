package mcp

// ToolDefinitions returns the MCP tool definitions for the chat bridge.
func ToolDefinitions() []ToolDefinition {
	chatID := Property{Type: "string", Description: "Chat session id (see chat_list)"}
	return []ToolDefinition{
		{
			Name:        "chat_list",
			Description: "List chat sessions in creation order with their mode and state. The active chat has state active_ready.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "chat_create",
			Description: "Create a new, inactive chat session. Use chat_activate before sending messages to it.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"description": {Type: "string", Description: "Optional label for the chat"},
					"mode":        {Type: "string", Description: "Mode name, see chat_modes (default: server default mode)"},
				},
			},
		},
		{
			Name: "chat_activate",
			Description: "Make a chat the active one. Its mode's system prompt is sent to the model " +
				"the first time the mode becomes current.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"chat_id": chatID},
				Required:   []string{"chat_id"},
			},
		},
		{
			Name:        "chat_deactivate",
			Description: "Clear the active chat. Safe to call when nothing is active.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name: "chat_set_mode",
			Description: "Change a chat's mode. If the chat is active the new system prompt is sent immediately; " +
				"otherwise on its next activation.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"chat_id": chatID,
					"mode":    {Type: "string", Description: "Mode name, see chat_modes"},
				},
				Required: []string{"chat_id", "mode"},
			},
		},
		{
			Name:        "chat_delete",
			Description: "Delete a chat session and its message history. Deleting the active chat deactivates it.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"chat_id": chatID},
				Required:   []string{"chat_id"},
			},
		},
		{
			Name:        "chat_send",
			Description: "Send a message to the active chat and return the model's reply.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"message": {Type: "string", Description: "The user message"},
				},
				Required: []string{"message"},
			},
		},
		{
			Name:        "chat_history",
			Description: "Return the logged messages of a chat, oldest first.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"chat_id": chatID,
					"limit":   {Type: "number", Description: "Maximum messages to return (default 50)", Default: 50},
				},
				Required: []string{"chat_id"},
			},
		},
		{
			Name:        "chat_modes",
			Description: "List available modes. The default mode is marked.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
	}
}
