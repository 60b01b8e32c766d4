package main

import (
	"fmt"

	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/tokens"
	"github.com/spf13/cobra"
)

var flattenFormat string

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Check a document's structure and report its size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cfg, logger)
		defer a.Close()

		dec, err := a.decoder(ctx, false)
		if err != nil {
			return err
		}
		doc, err := dec.DecodeFile(ctx, args[0])
		if err != nil {
			return err
		}

		nodes, strategies := 0, 0
		prompt.Walk(doc.Root, func(n *prompt.Node) bool {
			nodes++
			if n.Strategy() != nil {
				strategies++
			}
			return true
		})

		budget := resolveBudget(0, doc.Budget, cfg.Fit.Budget)
		total := tokens.Measure(doc.Root, a.tokenize, tokens.Project)

		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d nodes, %d with strategies, %d tokens (budget %d)\n",
			args[0], nodes, strategies, total, budget)
		if total > budget && strategies == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: over budget by %d with nothing to reduce\n", total-budget)
		}
		return nil
	},
}

var flattenCmd = &cobra.Command{
	Use:   "flatten <document>",
	Short: "Print a document's message layout without fitting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flattenFormat); err != nil {
			return err
		}

		ctx := cmd.Context()
		a := newApp(cfg, logger)
		defer a.Close()

		dec, err := a.decoder(ctx, false)
		if err != nil {
			return err
		}
		doc, err := dec.DecodeFile(ctx, args[0])
		if err != nil {
			return err
		}

		return writeLayout(cmd.OutOrStdout(), layout.NewFlattener(logger).Flatten(doc.Root), flattenFormat)
	},
}

// resolveBudget prefers the flag, then the document, then the config
func resolveBudget(flag, doc, configured int) int {
	switch {
	case flag > 0:
		return flag
	case doc > 0:
		return doc
	default:
		return configured
	}
}

func init() {
	flattenCmd.Flags().StringVar(&flattenFormat, "format", formatText, "Output format: text, json")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(flattenCmd)
}
