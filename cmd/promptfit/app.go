package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/document"
	"github.com/s33g/promptfit/internal/fit"
	"github.com/s33g/promptfit/internal/history"
	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/llm"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/ratelimit"
	"github.com/s33g/promptfit/internal/storage"
	"github.com/s33g/promptfit/internal/tokens"
)

// app wires configured backends for one command run
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	tokenize prompt.Tokenizer

	redis   *storage.Client
	closers []func() error
}

func newApp(c *config.Config, l zerolog.Logger) *app {
	counter := tokens.NewTokenCounter()
	tokenize := counter.Tokenizer(c.Tokenizer.Model)
	if c.Tokenizer.Encoding != "" {
		tokenize = counter.EncodingTokenizer(c.Tokenizer.Encoding)
	}

	return &app{cfg: c, logger: l, tokenize: tokenize}
}

// Close releases every backend opened by the app
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close backend")
		}
	}
	a.closers = nil
	a.redis = nil
}

// redisClient connects on first use
func (a *app) redisClient(ctx context.Context) (*storage.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}

	client, err := storage.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("address", client.Address()).Msg("Connected to Redis")

	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *app) summaryStore(ctx context.Context) (prompt.SummaryStore, error) {
	switch a.cfg.Summary.Store {
	case config.StoreRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisSummaryStore(client, a.cfg.Summary.TTL()), nil
	case config.StoreSQLite:
		store, err := storage.NewSQLiteSummaryStore(a.cfg.Summary.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return fit.NewMemoryStore(), nil
	}
}

// provider returns the summarization provider, or nil when none is configured
func (a *app) provider(ctx context.Context) (prompt.CompletionProvider, error) {
	if a.cfg.Summary.Provider == "" {
		return nil, nil
	}

	completer, err := llm.NewRegistry(a.cfg).Provider(a.cfg.Summary.Provider, a.cfg.Summary.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve summary provider: %w", err)
	}

	rate, tokenLimit := a.cfg.Summary.RateLimit, a.cfg.Summary.TokenLimit
	if !rate.Enabled() && !tokenLimit.Enabled() {
		return completer, nil
	}

	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.NewLimiter(ctx, client)
	if err != nil {
		return nil, err
	}

	return ratelimit.Guard(completer, limiter, ratelimit.GuardOptions{
		Scope:      "summarize:" + a.cfg.Summary.Provider,
		RateLimit:  rate,
		TokenLimit: tokenLimit,
		Tokenize:   a.tokenize,
		Logger:     a.logger,
	}), nil
}

func (a *app) history(ctx context.Context) (*history.Manager, error) {
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return history.NewManager(client, a.cfg.History.TTL(), a.cfg.History.MaxMessages, a.logger), nil
}

// lazyHistory connects to Redis only when a document references history
type lazyHistory struct{ app *app }

func (h lazyHistory) Load(ctx context.Context, conversationID string) (layout.Layout, error) {
	mgr, err := h.app.history(ctx)
	if err != nil {
		return layout.Layout{}, err
	}
	return mgr.Load(ctx, conversationID)
}

// decoder builds a document decoder; withStore attaches the configured summary store
func (a *app) decoder(ctx context.Context, withStore bool) (*document.Decoder, error) {
	d := &document.Decoder{History: lazyHistory{app: a}}
	if withStore {
		store, err := a.summaryStore(ctx)
		if err != nil {
			return nil, err
		}
		d.Store = store
	}
	return d, nil
}

func (a *app) engine(ctx context.Context) (*fit.Engine, error) {
	provider, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}

	return fit.New(fit.Options{
		Tokenize:      a.tokenize,
		Project:       tokens.Project,
		Ambient:       prompt.Ambient{Provider: provider},
		MaxIterations: a.cfg.Fit.MaxIterations,
		Logger:        a.logger,
	}), nil
}
