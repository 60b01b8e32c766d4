package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "promptfit",
	Short: "Fit prioritized prompt documents into a token budget",
	Long: `promptfit builds prompts from YAML documents of prioritized regions and
reduces them until they fit a token budget.

Commands:
  promptfit validate <doc>     Check a document's structure and size
  promptfit flatten <doc>      Print the message layout without fitting
  promptfit fit <doc>          Fit a document and print the result
  promptfit history ...        Manage stored conversation history`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log") {
			level = logLevel
		}
		logger, err = newLogger(os.Stderr, level, cfg.Logging.Format)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error (overrides logging.level)")
}

// loadConfig reads path, falling back to defaults when the default path does not exist
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
