// Package tui is a terminal chat client for the bridge server.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

const (
	sidebarWidth = 32

	listTimeout = 10 * time.Second
	// Activation and mode changes may deliver a system prompt upstream.
	upstreamTimeout = 3 * time.Minute
)

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineSystem
	lineError
)

type outputLine struct {
	kind lineKind
	text string
}

// Messages

type chatsLoadedMsg struct {
	chats  []models.ChatInfo
	active string
	err    error
}

type actionDoneMsg struct {
	note string
	err  error
	// historyFor loads this chat's transcript after a successful action.
	historyFor string
}

type replyMsg struct {
	text  string
	usage models.Usage
	err   error
}

type historyLoadedMsg struct {
	history *models.ChatHistory
	err     error
}

// Model is the root bubbletea model.
type Model struct {
	width  int
	height int
	ready  bool

	client   *client.Client
	style    string
	renderer *glamour.TermRenderer

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap

	showHelp       bool
	sidebarFocused bool

	chats    []models.ChatInfo
	activeID string
	selected int

	lines     []outputLine
	waiting   bool
	lastUsage *models.Usage
}

// Available commands, shown in the help view
var availableCommands = []struct {
	cmd  string
	desc string
}{
	{"/new [mode] [description]", "Create a chat and make it active"},
	{"/use <n|id>", "Activate a chat by list number or id prefix"},
	{"/mode <name>", "Change the active chat's mode"},
	{"/modes", "List available modes"},
	{"/describe <text>", "Set the active chat's description"},
	{"/history", "Reload the active chat's transcript"},
	{"/deactivate", "Clear the active chat"},
	{"/delete [n|id]", "Delete a chat (default: the active one)"},
	{"/clear", "Clear the output"},
	{"/help", "Show help"},
	{"/quit", "Exit"},
}

// NewModel creates the root model. markdownStyle is a glamour style name, or
// "auto" to follow the terminal background.
func NewModel(c *client.Client, markdownStyle string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message or /help..."
	ti.Prompt = "❯ "
	ti.PromptStyle = InputPromptStyle
	ti.CharLimit = 0
	ti.Width = 80
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle

	return Model{
		client:   c,
		style:    markdownStyle,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		selected: 0,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadChatsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case chatsLoadedMsg:
		if msg.err != nil {
			m.appendLine(lineError, "Failed to load chats: "+msg.err.Error())
			return m, nil
		}
		m.chats = msg.chats
		m.activeID = msg.active
		if m.selected >= len(m.chats) {
			m.selected = max(len(m.chats)-1, 0)
		}
		return m, nil

	case actionDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.appendLine(lineError, msg.err.Error())
			return m, m.loadChatsCmd()
		}
		if msg.note != "" {
			m.appendLine(lineSystem, msg.note)
		}
		cmds := []tea.Cmd{m.loadChatsCmd()}
		if msg.historyFor != "" {
			cmds = append(cmds, m.loadHistoryCmd(msg.historyFor))
		}
		return m, tea.Batch(cmds...)

	case historyLoadedMsg:
		if msg.err != nil {
			m.appendLine(lineError, "Failed to load history: "+msg.err.Error())
			return m, nil
		}
		m.lines = nil
		for _, entry := range msg.history.Messages {
			switch entry.Role {
			case models.RoleUser:
				m.lines = append(m.lines, outputLine{kind: lineUser, text: entry.Content})
			case models.RoleAssistant:
				m.lines = append(m.lines, outputLine{kind: lineAssistant, text: entry.Content})
			default:
				mode, _ := entry.Metadata["mode"].(string)
				m.lines = append(m.lines, outputLine{kind: lineSystem, text: "Mode prompt sent (" + mode + ")"})
			}
		}
		if len(m.lines) == 0 {
			m.lines = append(m.lines, outputLine{kind: lineSystem, text: "No messages yet."})
		}
		m.refreshViewport()
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			text := msg.err.Error()
			if errors.Is(msg.err, models.ErrNoActiveSession) {
				text = "No active chat. Use /new or /use <n> first."
			}
			m.appendLine(lineError, text)
			return m, nil
		}
		usage := msg.usage
		m.lastUsage = &usage
		m.appendLine(lineAssistant, msg.text)
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Focus):
		m.sidebarFocused = !m.sidebarFocused
		if m.sidebarFocused {
			m.input.Blur()
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.New):
		cmd := m.executeCommand("/new")
		return m, cmd
	}

	if m.sidebarFocused {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.chats)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Enter):
			if m.selected < len(m.chats) {
				return m, m.activateCmd(m.chats[m.selected].ID)
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadChatsCmd()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Escape):
			m.sidebarFocused = false
			cmd := m.input.Focus()
			return m, cmd
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Enter) {
		value := m.input.Value()
		m.input.SetValue("")
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		cmd := m.executeCommand(value)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// executeCommand runs a slash command, or sends text to the active chat.
func (m *Model) executeCommand(text string) tea.Cmd {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "/") {
		if m.waiting {
			m.appendLine(lineError, "Still waiting for the previous reply.")
			return nil
		}
		m.appendLine(lineUser, text)
		m.waiting = true
		return tea.Batch(m.sendCmd(text), m.spinner.Tick)
	}

	fields := strings.Fields(text)
	name, args := fields[0], fields[1:]

	switch name {
	case "/new":
		var mode, description string
		if len(args) > 0 {
			mode = args[0]
			description = strings.Join(args[1:], " ")
		}
		return m.createCmd(mode, description)

	case "/use":
		if len(args) != 1 {
			m.appendLine(lineError, "Usage: /use <n|id>")
			return nil
		}
		id, err := resolveChat(m.chats, args[0])
		if err != nil {
			m.appendLine(lineError, err.Error())
			return nil
		}
		return m.activateCmd(id)

	case "/mode":
		if len(args) != 1 {
			m.appendLine(lineError, "Usage: /mode <name>")
			return nil
		}
		if m.activeID == "" {
			m.appendLine(lineError, "No active chat.")
			return nil
		}
		return m.setModeCmd(m.activeID, args[0])

	case "/modes":
		return m.listModesCmd()

	case "/describe":
		if m.activeID == "" {
			m.appendLine(lineError, "No active chat.")
			return nil
		}
		return m.describeCmd(m.activeID, strings.Join(args, " "))

	case "/history":
		if m.activeID == "" {
			m.appendLine(lineError, "No active chat.")
			return nil
		}
		return m.loadHistoryCmd(m.activeID)

	case "/deactivate":
		return m.deactivateCmd()

	case "/delete":
		id := m.activeID
		if len(args) > 0 {
			resolved, err := resolveChat(m.chats, args[0])
			if err != nil {
				m.appendLine(lineError, err.Error())
				return nil
			}
			id = resolved
		}
		if id == "" {
			m.appendLine(lineError, "Usage: /delete [n|id]")
			return nil
		}
		return m.deleteCmd(id)

	case "/clear":
		m.lines = nil
		m.refreshViewport()
		return nil

	case "/help":
		m.showHelp = true
		return nil

	case "/quit":
		return tea.Quit

	default:
		m.appendLine(lineError, "Unknown command: "+name)
		return nil
	}
}

// resolveChat accepts a 1-based list number, a full id, or a unique id prefix.
func resolveChat(chats []models.ChatInfo, ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(chats) {
			return "", fmt.Errorf("no chat #%d", n)
		}
		return chats[n-1].ID, nil
	}

	var match string
	for _, c := range chats {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one chat", ref)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no chat matches %q", ref)
	}
	return match, nil
}

// Commands

func (m Model) loadChatsCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		chats, err := c.ListChats(ctx)
		if err != nil {
			return chatsLoadedMsg{err: err}
		}
		active, err := c.Active(ctx)
		return chatsLoadedMsg{chats: chats, active: active, err: err}
	}
}

func (m Model) loadHistoryCmd(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		history, err := c.History(ctx, id, 0)
		return historyLoadedMsg{history: history, err: err}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), upstreamTimeout)
		defer cancel()
		resp, err := c.Send(ctx, text)
		if err != nil {
			return replyMsg{err: err}
		}
		if len(resp.Choices) == 0 {
			return replyMsg{err: errors.New("empty completion")}
		}
		return replyMsg{text: resp.Choices[0].Message.Content, usage: resp.Usage}
	}
}

func (m Model) createCmd(mode, description string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), upstreamTimeout)
		defer cancel()
		id, err := c.CreateChat(ctx, description, mode)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if err := c.Activate(ctx, id); err != nil {
			return actionDoneMsg{err: fmt.Errorf("created %s but activation failed: %w", id, err)}
		}
		return actionDoneMsg{note: "Created and activated chat " + id, historyFor: id}
	}
}

func (m Model) activateCmd(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), upstreamTimeout)
		defer cancel()
		if err := c.Activate(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Active chat: " + id, historyFor: id}
	}
}

func (m Model) setModeCmd(id, mode string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), upstreamTimeout)
		defer cancel()
		info, err := c.SetMode(ctx, id, mode)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: fmt.Sprintf("Mode is now %s (%s)", info.Mode, info.State)}
	}
}

func (m Model) describeCmd(id, description string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		if _, err := c.UpdateDescription(ctx, id, description); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Description updated"}
	}
}

func (m Model) deactivateCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		if err := c.Deactivate(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "No active chat"}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		if err := c.DeleteChat(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Deleted chat " + id}
	}
}

func (m Model) listModesCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		list, err := c.Modes(ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		var b strings.Builder
		b.WriteString("Modes:")
		for _, mode := range list {
			marker := ""
			if mode.Default {
				marker = " (default)"
			}
			fmt.Fprintf(&b, "\n  %s%s  %s", mode.Name, marker, mode.Description)
		}
		return actionDoneMsg{note: b.String()}
	}
}

// Output

func (m *Model) appendLine(kind lineKind, text string) {
	m.lines = append(m.lines, outputLine{kind: kind, text: text})
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderOutputContent())
	m.viewport.GotoBottom()
}

// layout sizes the viewport, input and markdown renderer to the terminal.
func (m *Model) layout() {
	outputWidth := m.width - sidebarWidth - 2
	m.viewport.Width = max(outputWidth-4, 10)
	m.viewport.Height = max(m.height-8, 1)
	m.input.Width = max(m.width-8, 10)

	renderer, err := newRenderer(m.style, m.viewport.Width-2)
	if err == nil {
		m.renderer = renderer
	}
	m.refreshViewport()
}

func newRenderer(style string, width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	return glamour.NewTermRenderer(opts...)
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
