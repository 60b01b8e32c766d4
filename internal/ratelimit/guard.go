package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/prompt"
)

var (
	// ErrRateLimited is returned when the request quota is used up
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTokenLimited is returned when a prompt would exceed the token quota
	ErrTokenLimited = errors.New("token limit exceeded")
)

// Checker is the quota check a GuardedProvider performs before each call
type Checker interface {
	CheckRateLimit(ctx context.Context, scope string, limits config.RateLimit) (*RateLimitResult, error)
	CheckTokenLimit(ctx context.Context, scope string, limit config.TokenLimit, tokens int) (*TokenLimitResult, error)
}

// GuardedProvider checks quotas before passing a completion through
type GuardedProvider struct {
	next     prompt.CompletionProvider
	checker  Checker
	scope    string
	rate     config.RateLimit
	tokens   config.TokenLimit
	tokenize prompt.Tokenizer
	logger   zerolog.Logger
}

// GuardOptions configures Guard
type GuardOptions struct {
	Scope      string
	RateLimit  config.RateLimit
	TokenLimit config.TokenLimit
	// Tokenize measures the prompt for the token quota
	Tokenize prompt.Tokenizer
	Logger   zerolog.Logger
}

// Guard wraps next with quota checks
func Guard(next prompt.CompletionProvider, checker Checker, opts GuardOptions) *GuardedProvider {
	return &GuardedProvider{
		next:     next,
		checker:  checker,
		scope:    opts.Scope,
		rate:     opts.RateLimit,
		tokens:   opts.TokenLimit,
		tokenize: opts.Tokenize,
		logger:   opts.Logger.With().Str("component", "ratelimit").Str("scope", opts.Scope).Logger(),
	}
}

// Complete fails with ErrRateLimited or ErrTokenLimited when a quota is
// exhausted and otherwise delegates to the wrapped provider
func (g *GuardedProvider) Complete(ctx context.Context, conversation string) (prompt.Completion, error) {
	if g.rate.Enabled() {
		res, err := g.checker.CheckRateLimit(ctx, g.scope, g.rate)
		if err != nil {
			return prompt.Completion{}, err
		}
		if !res.Allowed {
			g.logger.Warn().
				Str("limit_type", res.LimitType).
				Int("seconds_to_reset", res.SecondsToReset).
				Msg("Completion rate limited")
			return prompt.Completion{}, fmt.Errorf("%w: %s limit, resets in %ds", ErrRateLimited, res.LimitType, res.SecondsToReset)
		}
	}

	if g.tokens.Enabled() && g.tokenize != nil {
		res, err := g.checker.CheckTokenLimit(ctx, g.scope, g.tokens, g.tokenize(conversation))
		if err != nil {
			return prompt.Completion{}, err
		}
		if !res.Allowed {
			g.logger.Warn().
				Int("tokens_used", res.TokensUsed).
				Int("tokens_remaining", res.TokensRemaining).
				Msg("Completion token limited")
			return prompt.Completion{}, fmt.Errorf("%w: %d tokens left, resets in %ds", ErrTokenLimited, res.TokensRemaining, res.SecondsToReset)
		}
		g.logger.Debug().
			Int("tokens_used", res.TokensUsed).
			Int("tokens_remaining", res.TokensRemaining).
			Msg("Token quota updated")
	}

	return g.next.Complete(ctx, conversation)
}
