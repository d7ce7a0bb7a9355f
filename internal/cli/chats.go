package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chat sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := opts.client.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, chats)
			}
			if len(chats) == 0 {
				fmt.Fprintln(out, "No chats. Create one with: chatctl create")
				return nil
			}

			highlight := -1
			rows := make([][]string, 0, len(chats))
			for i, c := range chats {
				if c.State != "inactive" {
					highlight = i
				}
				rows = append(rows, []string{
					c.ID,
					c.Mode,
					c.State,
					shorten(c.Description, 40),
					time.Unix(c.CreatedAt, 0).Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "MODE", "STATE", "DESCRIPTION", "CREATED"}, rows, highlight))
			return nil
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var mode, description string
	var activate bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.client.CreateChat(cmd.Context(), description, mode)
			if err != nil {
				return err
			}
			if activate {
				if err := opts.client.Activate(cmd.Context(), id); err != nil {
					return fmt.Errorf("created %s but activation failed: %w", id, err)
				}
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), models.CreateChatResponse{ChatID: id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "mode name (default: server default)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "label for the chat")
	cmd.Flags().BoolVarP(&activate, "activate", "a", false, "activate the chat after creating it")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Show one chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := opts.client.GetChat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, info)
			}
			fmt.Fprintf(out, "id:               %s\n", info.ID)
			fmt.Fprintf(out, "description:      %s\n", info.Description)
			fmt.Fprintf(out, "mode:             %s\n", info.Mode)
			fmt.Fprintf(out, "state:            %s\n", info.State)
			fmt.Fprintf(out, "prompt delivered: %t\n", info.PromptDelivered)
			return nil
		},
	}
}

func newActivateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <chat-id>",
		Short: "Make a chat the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client.Activate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active chat: %s\n", args[0])
			return nil
		},
	}
}

func newDeactivateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Clear the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client.Deactivate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No active chat")
			return nil
		},
	}
}

func newActiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the active chat id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.client.Active(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				resp := models.ActiveChatResponse{}
				if id != "" {
					resp.ActiveChatID = &id
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if id == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No active chat")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newModeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <chat-id> <mode>",
		Short: "Change a chat's mode",
		Long:  "Change a chat's mode. If the chat is active its new system prompt is sent right away.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := opts.client.SetMode(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chat %s is now in %s mode (%s)\n", info.ID, info.Mode, info.State)
			return nil
		},
	}
}

func newDescribeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <chat-id> <description...>",
		Short: "Set a chat's description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.client.UpdateDescription(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chat %s: %s\n", sess.ID, sess.Description)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <chat-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete chat sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := opts.client.DeleteChat(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newSendCmd(opts *options) *cobra.Command {
	var showUsage bool
	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message to the active chat",
		Long:  `Send a message to the active chat and print the reply. Use "-" to read the message from stdin.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}

			resp, err := opts.client.Send(cmd.Context(), text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, resp)
			}
			if len(resp.Choices) > 0 {
				fmt.Fprintln(out, resp.Choices[0].Message.Content)
			}
			if showUsage {
				approx := ""
				if resp.Usage.Estimated {
					approx = " (estimated)"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "tokens: prompt=%d completion=%d total=%d%s\n",
					resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens, approx)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showUsage, "usage", "u", false, "print token usage to stderr")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <chat-id>",
		Short: "Print a chat's message log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := opts.client.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, hist)
			}
			for _, m := range hist.Messages {
				ts := time.Unix(m.CreatedAt, 0).Format("15:04:05")
				fmt.Fprintf(out, "[%s] %-9s %s\n", ts, m.Role, m.Content)
			}
			fmt.Fprintf(out, "%d of %d messages\n", len(hist.Messages), hist.TotalMessages)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of most recent messages (default: server default)")
	return cmd
}

func newModesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List available modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := opts.client.Modes(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, list)
			}
			for _, m := range list {
				marker := " "
				if m.Default {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-12s %s\n", marker, m.Name, m.Description)
			}
			return nil
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the bridge server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := opts.client.Health(cmd.Context())
			if health == nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), health); err != nil {
				return err
			}
			if health.Status != "ok" {
				return fmt.Errorf("bridge is %s", health.Status)
			}
			return nil
		},
	}
}
