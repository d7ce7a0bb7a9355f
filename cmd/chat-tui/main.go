package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/config"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/tui"
)

func main() {
	cfg := config.LoadClient()

	p := tea.NewProgram(
		tui.NewModel(client.New(cfg.BridgeServerURL, cfg.APIKey), cfg.MarkdownStyle),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
