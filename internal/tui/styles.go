package tui

import "github.com/charmbracelet/lipgloss"

// One Dark Pro color palette
var (
	ColorBgHighlight = lipgloss.Color("#2C313C")

	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")
	ColorFgComment   = lipgloss.Color("#5C6370")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")

	ColorBorder = lipgloss.Color("#3F4451")
)

// Component styles
var (
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	SidebarFocusedStyle = SidebarStyle.
				BorderForeground(ColorMagenta)

	SidebarTitleStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta).
				Bold(true)

	ChatItemStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	ChatSelectedStyle = lipgloss.NewStyle().
				Background(ColorBgHighlight).
				Foreground(ColorFgPrimary).
				Bold(true)

	ChatActiveMarkStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	OutputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	// Assistant replies
	AssistantStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorBlue).
			PaddingLeft(1)

	SystemTextStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	UserInputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorGreen).
			PaddingLeft(1)

	UserTextStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgComment)
)
