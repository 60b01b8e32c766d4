package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/fit"
	"github.com/s33g/promptfit/internal/layout"
	"github.com/spf13/cobra"
)

var (
	fitBudget  int
	fitFormat  string
	fitTimeout time.Duration
	fitWatch   bool
)

var fitCmd = &cobra.Command{
	Use:   "fit <document>",
	Short: "Reduce a document until it fits the token budget",
	Long: `Reduce a document until it fits the token budget and print the resulting layout.

The budget comes from --budget, then the document's budget field, then fit.budget
in the config. With --watch the document is fitted again whenever the config file
changes or the process receives SIGHUP.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(fitFormat); err != nil {
			return err
		}
		if !fitWatch {
			return runFit(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		}
		return watchFit(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	fitCmd.Flags().IntVar(&fitBudget, "budget", 0, "Token budget (overrides document and config)")
	fitCmd.Flags().StringVar(&fitFormat, "format", formatText, "Output format: text, json")
	fitCmd.Flags().DurationVar(&fitTimeout, "timeout", 0, "Abort the fit after this long (0 disables)")
	fitCmd.Flags().BoolVar(&fitWatch, "watch", false, "Fit again when the config file changes")

	rootCmd.AddCommand(fitCmd)
}

func runFit(ctx context.Context, w io.Writer, c *config.Config, path string) error {
	if fitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fitTimeout)
		defer cancel()
	}

	a := newApp(c, logger)
	defer a.Close()

	dec, err := a.decoder(ctx, true)
	if err != nil {
		return err
	}
	doc, err := dec.DecodeFile(ctx, path)
	if err != nil {
		return err
	}

	eng, err := a.engine(ctx)
	if err != nil {
		return err
	}

	budget := resolveBudget(fitBudget, doc.Budget, c.Fit.Budget)
	before := eng.Measure(doc.Root)

	fitted, err := eng.Fit(ctx, doc.Root, budget)
	if err != nil {
		var ferr *fit.FitError
		if errors.As(err, &ferr) {
			return fmt.Errorf("%s does not fit %d tokens: %w", path, budget, err)
		}
		return err
	}

	after := eng.Measure(fitted)
	logger.Info().
		Str("document", path).
		Int("budget", budget).
		Int("tokens_before", before).
		Int("tokens_after", after).
		Msg("Document fitted")

	l := layout.NewFlattener(logger).Flatten(fitted)
	if fitFormat == formatJSON {
		return writeJSON(w, fitResult{Budget: budget, Tokens: after, Layout: l})
	}
	return writeLayout(w, l, formatText)
}

func watchFit(ctx context.Context, w io.Writer, path string) error {
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("--watch needs a config file: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// latest config wins if reloads arrive faster than fits finish
	reloads := make(chan *config.Config, 1)
	watcher, err := config.NewWatcher(configPath, func(c *config.Config) error {
		for {
			select {
			case reloads <- c:
				return nil
			default:
			}
			select {
			case <-reloads:
			default:
			}
		}
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	watcher.Start(ctx)

	current := cfg
	for {
		if err := runFit(ctx, w, current, path); err != nil {
			logger.Error().Err(err).Str("document", path).Msg("Fit failed")
		}

		select {
		case <-ctx.Done():
			<-watcher.Done()
			return nil
		case current = <-reloads:
		}
	}
}
