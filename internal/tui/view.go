package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.helpView()
	}
	return m.mainView()
}

// mainView renders header, sidebar and transcript, input, and status bar
func (m Model) mainView() string {
	bodyHeight := m.height - 6

	sidebar := m.renderSidebar(sidebarWidth, bodyHeight)
	output := OutputStyle.
		Width(m.width - sidebarWidth - 4).
		Height(bodyHeight - 2).
		Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, output)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true).
		Render("GEMINI BRIDGE")

	var chatInfo string
	if info := m.activeChat(); info != nil {
		label := info.Description
		if label == "" {
			label = shortID(info.ID)
		}
		chatInfo = lipgloss.NewStyle().
			Foreground(ColorFgSecondary).
			Render(" · " + label + " · " + info.Mode)
	}

	return lipgloss.NewStyle().
		PaddingLeft(1).
		Width(m.width).
		Render(title + chatInfo)
}

func (m Model) renderSidebar(width, height int) string {
	style := SidebarStyle
	if m.sidebarFocused {
		style = SidebarFocusedStyle
	}

	var b strings.Builder
	b.WriteString(SidebarTitleStyle.Render("CHATS"))
	b.WriteString("\n\n")

	if len(m.chats) == 0 {
		b.WriteString(DimStyle.Render("No chats yet.\nctrl+n to create one."))
	}
	for i, c := range m.chats {
		mark := "  "
		if c.ID == m.activeID {
			mark = ChatActiveMarkStyle.Render("● ")
		}
		label := c.Description
		if label == "" {
			label = shortID(c.ID)
		}
		line := fmt.Sprintf("%d. %s", i+1, truncate(label, width-12))
		item := ChatItemStyle
		if m.sidebarFocused && i == m.selected {
			item = ChatSelectedStyle
		}
		b.WriteString(mark + item.Render(line) + "\n")
		b.WriteString("     " + DimStyle.Render(c.Mode) + "\n")
	}

	return style.
		Width(width - 2).
		Height(height - 2).
		Render(strings.TrimSuffix(b.String(), "\n"))
}

func (m Model) renderInput() string {
	border := ColorBorder
	if !m.sidebarFocused {
		border = ColorGreen
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(m.width - 4).
		Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var parts []string
	if m.waiting {
		parts = append(parts, m.spinner.View()+" waiting for reply")
	} else if info := m.activeChat(); info != nil {
		parts = append(parts, fmt.Sprintf("%s · %s", shortID(info.ID), info.State))
	} else {
		parts = append(parts, "no active chat")
	}

	if u := m.lastUsage; u != nil {
		usage := fmt.Sprintf("tokens %d/%d", u.PromptTokens, u.CompletionTokens)
		if u.Estimated {
			usage += " (est)"
		}
		parts = append(parts, usage)
	}

	parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	return StatusBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(HelpTitleStyle.Render("Commands"))
	b.WriteString("\n\n")
	for _, c := range availableCommands {
		b.WriteString(fmt.Sprintf("  %-28s %s\n", c.cmd, DimStyle.Render(c.desc)))
	}
	b.WriteString("\n")
	b.WriteString(HelpTitleStyle.Render("Keys"))
	b.WriteString("\n\n")

	h := m.help
	h.ShowAll = true
	b.WriteString(h.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("esc or ? to close"))

	return HelpStyle.Render(b.String())
}

func (m Model) renderOutputContent() string {
	blocks := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		switch line.kind {
		case lineUser:
			blocks = append(blocks, UserInputStyle.Render(UserTextStyle.Render(line.text)))
		case lineAssistant:
			blocks = append(blocks, AssistantStyle.Render(m.renderMarkdown(line.text)))
		case lineSystem:
			blocks = append(blocks, SystemTextStyle.Render(line.text))
		case lineError:
			blocks = append(blocks, ErrorStyle.Render("✗ "+line.text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) activeChat() *models.ChatInfo {
	for i := range m.chats {
		if m.chats[i].ID == m.activeID {
			return &m.chats[i]
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if max < 2 {
		max = 2
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
