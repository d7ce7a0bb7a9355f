package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
)

const protocolVersion = "2024-11-05"

// Server implements an MCP stdio server that delegates to the bridge HTTP API.
type Server struct {
	client  *client.Client
	version string

	mu  sync.Mutex
	out io.Writer
}

// NewServer creates an MCP server writing responses to out.
func NewServer(c *client.Client, out io.Writer, version string) *Server {
	return &Server{client: c, out: out, version: version}
}

// Run reads newline-delimited requests from in until it is closed or ctx ends.
func (s *Server) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer for large messages
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(errorResponse(nil, codeParseError, "parse error: "+err.Error()))
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			s.writeResponse(resp)
		}
	}

	return scanner.Err()
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: InitializeResult{
				ProtocolVersion: protocolVersion,
				Capabilities:    ServerCapabilities{Tools: &ToolCapabilities{}},
				ServerInfo:      ServerInfo{Name: "gemini-bridge", Version: s.version},
			},
		}
	case "tools/list":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: ToolDefinitions()}}
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{}}
	default:
		if req.IsNotification() {
			// initialized, cancelled and friends: no response
			return nil
		}
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid params: "+err.Error())
	}

	text, isError := s.dispatchTool(ctx, params.Name, params.Arguments)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
			IsError: isError,
		},
	}
}

func (s *Server) dispatchTool(ctx context.Context, name string, args map[string]any) (string, bool) {
	switch name {
	case "chat_list":
		return result(s.client.ListChats(ctx))
	case "chat_create":
		id, err := s.client.CreateChat(ctx, getString(args, "description"), getString(args, "mode"))
		return result(map[string]string{"chat_id": id}, err)
	case "chat_activate":
		id, msg := requireString(args, "chat_id")
		if msg != "" {
			return msg, true
		}
		if err := s.client.Activate(ctx, id); err != nil {
			return err.Error(), true
		}
		return result(s.client.GetChat(ctx, id))
	case "chat_deactivate":
		return result(map[string]any{"active_chat_id": nil}, s.client.Deactivate(ctx))
	case "chat_set_mode":
		id, msg := requireString(args, "chat_id")
		if msg != "" {
			return msg, true
		}
		mode, msg := requireString(args, "mode")
		if msg != "" {
			return msg, true
		}
		return result(s.client.SetMode(ctx, id, mode))
	case "chat_delete":
		id, msg := requireString(args, "chat_id")
		if msg != "" {
			return msg, true
		}
		return result(map[string]string{"deleted": id}, s.client.DeleteChat(ctx, id))
	case "chat_send":
		text, msg := requireString(args, "message")
		if msg != "" {
			return msg, true
		}
		resp, err := s.client.Send(ctx, text)
		if err != nil {
			return err.Error(), true
		}
		if len(resp.Choices) == 0 {
			return "empty completion", true
		}
		return resp.Choices[0].Message.Content, false
	case "chat_history":
		id, msg := requireString(args, "chat_id")
		if msg != "" {
			return msg, true
		}
		return result(s.client.History(ctx, id, int(getFloat(args, "limit", 50))))
	case "chat_modes":
		return result(s.client.Modes(ctx))
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

// result renders v as indented JSON, or err as a tool error.
func result(v any, err error) (string, bool) {
	if err != nil {
		return err.Error(), true
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("marshal error: %s", err), true
	}
	return string(data), false
}

// --- Response helpers ---

func (s *Server) writeResponse(resp *Response) {
	data, _ := json.Marshal(resp)
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", data)
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// --- Argument helpers ---

func getString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func requireString(args map[string]any, key string) (string, string) {
	v := getString(args, key)
	if v == "" {
		return "", key + " is required"
	}
	return v, ""
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		}
	}
	return fallback
}
