package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/spf13/cobra"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage stored conversation history (append, show, clear)",
}

var historyAppendCmd = &cobra.Command{
	Use:   "append <conversation-id> <role> [text...]",
	Short: "Append a text message; without text the message is read from stdin",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := prompt.ParseRole(args[1])
		if err != nil {
			return err
		}

		text := strings.Join(args[2:], " ")
		if len(args) == 2 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}
			text = strings.TrimRight(string(data), "\n")
		}

		ctx := cmd.Context()
		a := newApp(cfg, logger)
		defer a.Close()

		mgr, err := a.history(ctx)
		if err != nil {
			return err
		}

		msg := layout.Message{Role: role, Parts: []layout.Part{layout.TextPart{Text: text}}}
		if err := mgr.Append(ctx, args[0], msg); err != nil {
			return err
		}

		logger.Info().
			Str("conversation_id", args[0]).
			Str("role", string(role)).
			Msg("Message appended")
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation's stored messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(historyFormat); err != nil {
			return err
		}

		ctx := cmd.Context()
		a := newApp(cfg, logger)
		defer a.Close()

		mgr, err := a.history(ctx)
		if err != nil {
			return err
		}
		l, err := mgr.Load(ctx, args[0])
		if err != nil {
			return err
		}
		return writeLayout(cmd.OutOrStdout(), l, historyFormat)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <conversation-id>",
	Short: "Delete a conversation's stored messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cfg, logger)
		defer a.Close()

		mgr, err := a.history(ctx)
		if err != nil {
			return err
		}
		return mgr.Clear(ctx, args[0])
	},
}

func init() {
	historyShowCmd.Flags().StringVar(&historyFormat, "format", formatText, "Output format: text, json")

	historyCmd.AddCommand(historyAppendCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
