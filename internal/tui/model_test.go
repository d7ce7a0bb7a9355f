package tui

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/api"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

type shoutConversation struct{}

func (shoutConversation) SendSystemPrompt(context.Context, string) error { return nil }

func (shoutConversation) SendUserMessage(_ context.Context, text string) (*upstream.Reply, error) {
	return &upstream.Reply{Text: "**" + strings.ToUpper(text) + "**"}, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry, err := modes.New("")
	if err != nil {
		t.Fatalf("modes: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := coordinator.New(store.NewSessionStore(db, registry), store.NewMessageStore(db), registry, shoutConversation{}, logger)
	router := api.NewRouter(db, coord, registry, nil, api.Options{
		Model:            "m",
		UpstreamTimeout:  5 * time.Second,
		CompletionsRPS:   100,
		CompletionsBurst: 100,
	}, logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	m := NewModel(client.New(srv.URL, ""), "notty")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// drive feeds the results of cmd back into the model until it settles.
// Spinner ticks are dropped so nothing sleeps.
func drive(m Model, cmd tea.Cmd) Model {
	for depth := 0; cmd != nil && depth < 5; depth++ {
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			if _, ok := msg.(spinner.TickMsg); ok {
				continue
			}
			updated, c := m.Update(msg)
			m = updated.(Model)
			if c != nil {
				next = append(next, c)
			}
		}
		cmd = nil
		if len(next) > 0 {
			cmd = tea.Batch(next...)
		}
	}
	return m
}

func run(m Model, text string) Model {
	cmd := m.executeCommand(text)
	return drive(m, cmd)
}

func lastLine(m Model) outputLine {
	if len(m.lines) == 0 {
		return outputLine{}
	}
	return m.lines[len(m.lines)-1]
}

func TestResolveChat(t *testing.T) {
	chats := []models.ChatInfo{
		{ChatSession: models.ChatSession{ID: "abc123"}},
		{ChatSession: models.ChatSession{ID: "abd456"}},
	}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"list number", "2", "abd456", false},
		{"number out of range", "3", "", true},
		{"zero", "0", "", true},
		{"full id", "abc123", "abc123", false},
		{"unique prefix", "abd", "abd456", false},
		{"ambiguous prefix", "ab", "", true},
		{"no match", "zzz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveChat(chats, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveChat(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveChat(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestLocalCommands(t *testing.T) {
	m := NewModel(nil, "notty")

	tests := []struct {
		name     string
		input    string
		wantKind lineKind
		wantText string
	}{
		{"unknown command", "/bogus", lineError, "Unknown command: /bogus"},
		{"use without argument", "/use", lineError, "Usage: /use <n|id>"},
		{"mode without active chat", "/mode Code", lineError, "No active chat."},
		{"history without active chat", "/history", lineError, "No active chat."},
		{"delete without target", "/delete", lineError, "Usage: /delete [n|id]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cmd := m.executeCommand(tt.input); cmd != nil {
				t.Errorf("executeCommand(%q) returned a command", tt.input)
			}
			got := lastLine(m)
			if got.kind != tt.wantKind || got.text != tt.wantText {
				t.Errorf("last line = %+v, want kind %d text %q", got, tt.wantKind, tt.wantText)
			}
		})
	}

	m.executeCommand("/clear")
	if len(m.lines) != 0 {
		t.Errorf("/clear left %d lines", len(m.lines))
	}
	m.executeCommand("/help")
	if !m.showHelp {
		t.Error("/help should open the help view")
	}
}

func TestSendWithoutActiveChat(t *testing.T) {
	m := newTestModel(t)

	m = run(m, "hello")
	if m.waiting {
		t.Error("still waiting after the reply")
	}
	got := lastLine(m)
	if got.kind != lineError || !strings.Contains(got.text, "No active chat") {
		t.Errorf("last line = %+v", got)
	}
}

func TestChatFlow(t *testing.T) {
	m := newTestModel(t)

	m = run(m, "/new Ask first chat")
	if len(m.chats) != 1 {
		t.Fatalf("chats = %d, want 1", len(m.chats))
	}
	first := m.chats[0]
	if m.activeID != first.ID {
		t.Fatalf("activeID = %q, want %q", m.activeID, first.ID)
	}
	if first.Mode != "Ask" || first.Description != "first chat" {
		t.Errorf("created chat = %+v", first)
	}
	// History was loaded after activation: the Ask prompt.
	if got := lastLine(m); got.kind != lineSystem || got.text != "Mode prompt sent (Ask)" {
		t.Errorf("last line = %+v", got)
	}

	m = run(m, "hello")
	got := lastLine(m)
	if got.kind != lineAssistant || got.text != "**HELLO**" {
		t.Fatalf("last line = %+v", got)
	}
	if m.lastUsage == nil || !m.lastUsage.Estimated {
		t.Errorf("lastUsage = %+v, want estimated usage", m.lastUsage)
	}
	if !strings.Contains(m.renderOutputContent(), "HELLO") {
		t.Error("rendered output is missing the reply")
	}

	m = run(m, "/mode Code")
	if m.chats[0].Mode != "Code" {
		t.Errorf("mode = %q, want Code", m.chats[0].Mode)
	}

	m = run(m, "/new")
	if len(m.chats) != 2 || m.activeID != m.chats[1].ID {
		t.Fatalf("second chat not active: %+v active=%q", m.chats, m.activeID)
	}

	m = run(m, "/use 1")
	if m.activeID != first.ID {
		t.Errorf("activeID = %q, want %q", m.activeID, first.ID)
	}
	// Ask prompt, user, reply, Code prompt. The Code prompt is not sent again.
	if len(m.lines) != 4 {
		t.Errorf("history lines = %d, want 4", len(m.lines))
	}

	m = run(m, "/deactivate")
	if m.activeID != "" {
		t.Errorf("activeID = %q after /deactivate", m.activeID)
	}

	m = run(m, "/delete 1")
	if len(m.chats) != 1 || m.chats[0].ID == first.ID {
		t.Errorf("chats after delete = %+v", m.chats)
	}

	if view := m.View(); !strings.Contains(view, "CHATS") || !strings.Contains(view, "GEMINI BRIDGE") {
		t.Error("main view is missing its frame")
	}
}

func TestKeyHandling(t *testing.T) {
	m := NewModel(nil, "notty")
	m.chats = []models.ChatInfo{
		{ChatSession: models.ChatSession{ID: "one"}},
		{ChatSession: models.ChatSession{ID: "two"}},
	}

	press := func(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
		updated, cmd := m.Update(msg)
		return updated.(Model), cmd
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.sidebarFocused {
		t.Fatal("tab should focus the sidebar")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.selected != 1 {
		t.Errorf("selected = %d after j, want 1", m.selected)
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.selected != 1 {
		t.Errorf("selected = %d, should stop at the last chat", m.selected)
	}

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("enter in the sidebar should activate the selected chat")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	if !m.showHelp {
		t.Error("? should open help")
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showHelp {
		t.Error("esc should close help")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.sidebarFocused {
		t.Error("esc should return focus to the input")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	if m.input.Value() != "hi" {
		t.Errorf("input = %q, want hi", m.input.Value())
	}

	_, cmd = press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 6, "trunc…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}
