// Package cli provides the chatctl commands, a thin client over the bridge API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/client"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/config"
)

type options struct {
	serverURL string
	apiKey    string
	jsonOut   bool

	client *client.Client
}

// NewRootCmd builds the chatctl command tree. Flags default to
// BRIDGE_SERVER_URL and API_KEY.
func NewRootCmd() *cobra.Command {
	env := config.LoadClient()
	opts := &options{}

	root := &cobra.Command{
		Use:   "chatctl",
		Short: "Manage chat sessions on a Gemini bridge server",
		Long: `chatctl talks to a running bridge server. It creates, activates and
deletes chat sessions, switches their modes, and sends messages to the
active session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.serverURL == "" {
				return fmt.Errorf("--server must not be empty")
			}
			opts.client = client.New(opts.serverURL, opts.apiKey)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", env.BridgeServerURL, "bridge server URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", env.APIKey, "API key sent as a bearer token")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print raw JSON responses")

	root.AddCommand(
		newListCmd(opts),
		newCreateCmd(opts),
		newShowCmd(opts),
		newActivateCmd(opts),
		newDeactivateCmd(opts),
		newActiveCmd(opts),
		newModeCmd(opts),
		newDescribeCmd(opts),
		newDeleteCmd(opts),
		newSendCmd(opts),
		newHistoryCmd(opts),
		newModesCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	activeStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#98C379")).Bold(true)
)

// renderTable draws rows with a header. highlight marks a row index to
// emphasize, or -1.
func renderTable(headers []string, rows [][]string, highlight int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3F4451"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == highlight:
				return activeStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}

func shorten(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
