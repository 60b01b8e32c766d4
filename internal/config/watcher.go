package config

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits after the last file event before reloading
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc applies a freshly loaded configuration
type ReloadFunc func(*Config) error

// Watcher reloads the configuration when its file changes or the process receives SIGHUP
type Watcher struct {
	configPath string
	logger     zerolog.Logger
	watcher    *fsnotify.Watcher
	onReload   ReloadFunc
	debounce   time.Duration
	done       chan struct{}
}

// NewWatcher creates a watcher for configPath. Editors that replace the file
// on save are handled by watching the parent directory.
func NewWatcher(configPath string, onReload ReloadFunc, logger zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(configPath)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		configPath: configPath,
		logger:     logger.With().Str("component", "config").Logger(),
		watcher:    fsWatcher,
		onReload:   onReload,
		debounce:   DefaultDebounce,
		done:       make(chan struct{}),
	}, nil
}

// SetDebounce overrides the reload debounce delay
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watches until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	go func() {
		defer close(w.done)
		defer signal.Stop(sigChan)
		defer w.watcher.Close()

		// reloads only run on this goroutine, never concurrently
		var (
			debounce *time.Timer
			fire     <-chan time.Time
		)
		target := filepath.Clean(w.configPath)

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				w.logger.Info().Msg("Config watcher stopped")
				return

			case <-fire:
				fire = nil
				w.reload()

			case sig := <-sigChan:
				w.logger.Info().
					Str("signal", sig.String()).
					Msg("Received signal, reloading configuration")
				w.reload()

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				w.logger.Debug().
					Str("file", event.Name).
					Str("op", event.Op.String()).
					Msg("Config file changed")

				if debounce == nil {
					debounce = time.NewTimer(w.debounce)
				} else {
					debounce.Reset(w.debounce)
				}
				fire = debounce.C

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error().Err(err).Msg("Config watcher error")
			}
		}
	}()

	w.logger.Info().
		Str("path", w.configPath).
		Msg("Config watcher started")
}

// Done is closed once the watcher has shut down
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		w.logger.Error().
			Err(err).
			Msg("Failed to load new configuration - keeping current config")
		return
	}

	if err := w.onReload(cfg); err != nil {
		w.logger.Error().
			Err(err).
			Msg("Failed to apply new configuration - keeping current config")
		return
	}

	w.logger.Info().Msg("Configuration reloaded successfully")
}
