package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/storage"
	"github.com/s33g/promptfit/internal/tokens"
)

func getTestClient(t *testing.T) *storage.Client {
	t.Helper()

	cfg := config.RedisConfig{
		Address:   "localhost:6379",
		DB:        15,
		KeyPrefix: "test:",
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx, cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Clean test database
	client.Redis().FlushDB(ctx)

	return client
}

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := getTestClient(t)
	t.Cleanup(func() { client.Close() })

	limiter, err := NewLimiter(context.Background(), client)
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	return limiter
}

func TestLimiter_CheckRateLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	limits := config.RateLimit{
		RequestsPerMinute: 3,
		RequestsPerHour:   10,
	}

	// First 3 requests should succeed
	for i := 0; i < 3; i++ {
		result, err := limiter.CheckRateLimit(ctx, "summarize", limits)
		if err != nil {
			t.Fatalf("CheckRateLimit() error = %v", err)
		}
		if !result.Allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 4th request should be rate limited
	result, err := limiter.CheckRateLimit(ctx, "summarize", limits)
	if err != nil {
		t.Fatalf("CheckRateLimit() error = %v", err)
	}
	if result.Allowed {
		t.Error("4th request should be rate limited")
	}
	if result.LimitType != "minute" {
		t.Errorf("LimitType = %v, want minute", result.LimitType)
	}
	if result.SecondsToReset <= 0 {
		t.Error("SecondsToReset should be positive")
	}
}

func TestLimiter_CheckRateLimitUnlimited(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		result, err := limiter.CheckRateLimit(ctx, "summarize", config.RateLimit{})
		if err != nil {
			t.Fatalf("CheckRateLimit() error = %v", err)
		}
		if !result.Allowed {
			t.Errorf("Request %d should be allowed (unlimited)", i+1)
		}
	}
}

func TestLimiter_DifferentScopes(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	limits := config.RateLimit{RequestsPerMinute: 2, RequestsPerHour: 10}

	limiter.CheckRateLimit(ctx, "a", limits)
	limiter.CheckRateLimit(ctx, "a", limits)

	result, _ := limiter.CheckRateLimit(ctx, "a", limits)
	if result.Allowed {
		t.Error("scope a should be rate limited")
	}

	result, _ = limiter.CheckRateLimit(ctx, "b", limits)
	if !result.Allowed {
		t.Error("scope b should not be rate limited")
	}
}

func TestLimiter_CheckTokenLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	limit := config.TokenLimit{TokensPerPeriod: 100, PeriodHours: 1}

	result, err := limiter.CheckTokenLimit(ctx, "summarize", limit, 30)
	if err != nil {
		t.Fatalf("CheckTokenLimit() error = %v", err)
	}
	if !result.Allowed || result.TokensUsed != 30 {
		t.Errorf("first add = %+v, want allowed with 30 used", result)
	}

	result, err = limiter.CheckTokenLimit(ctx, "summarize", limit, 50)
	if err != nil {
		t.Fatalf("CheckTokenLimit() error = %v", err)
	}
	if !result.Allowed || result.TokensUsed != 80 {
		t.Errorf("second add = %+v, want allowed with 80 used", result)
	}

	result, err = limiter.CheckTokenLimit(ctx, "summarize", limit, 30)
	if err != nil {
		t.Fatalf("CheckTokenLimit() error = %v", err)
	}
	if result.Allowed {
		t.Error("Token add should be rejected (would exceed limit)")
	}
	if result.TokensUsed != 80 {
		t.Errorf("TokensUsed = %d, want 80 (unchanged)", result.TokensUsed)
	}
	if result.SecondsToReset <= 0 {
		t.Error("SecondsToReset should be positive")
	}
}

func TestLimiter_HourWindow(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	limits := config.RateLimit{RequestsPerHour: 2}

	for i := 0; i < 2; i++ {
		if result, err := limiter.CheckRateLimit(ctx, "hourly", limits); err != nil || !result.Allowed {
			t.Fatalf("request %d = %+v, %v; want allowed", i+1, result, err)
		}
	}

	result, err := limiter.CheckRateLimit(ctx, "hourly", limits)
	if err != nil {
		t.Fatalf("CheckRateLimit() error = %v", err)
	}
	if result.Allowed || result.LimitType != "hour" {
		t.Errorf("third request = %+v, want hour limit", result)
	}
	if result.SecondsToReset <= 0 || result.SecondsToReset > 3600 {
		t.Errorf("SecondsToReset = %d, want within the hour", result.SecondsToReset)
	}
}

func TestLimiter_TokenLimitNeedsPeriod(t *testing.T) {
	var limiter Limiter

	_, err := limiter.CheckTokenLimit(context.Background(), "summarize", config.TokenLimit{TokensPerPeriod: 10}, 1)
	if err == nil {
		t.Error("expected error for a token limit without a period")
	}

	result, err := limiter.CheckTokenLimit(context.Background(), "summarize", config.TokenLimit{}, 1000)
	if err != nil || !result.Allowed {
		t.Errorf("disabled limit = %+v, %v; want allowed", result, err)
	}
}

type fakeChecker struct {
	rate       RateLimitResult
	tokens     TokenLimitResult
	tokenCalls []int
}

func (f *fakeChecker) CheckRateLimit(context.Context, string, config.RateLimit) (*RateLimitResult, error) {
	r := f.rate
	return &r, nil
}

func (f *fakeChecker) CheckTokenLimit(_ context.Context, _ string, _ config.TokenLimit, n int) (*TokenLimitResult, error) {
	f.tokenCalls = append(f.tokenCalls, n)
	r := f.tokens
	return &r, nil
}

type echoProvider struct{ calls int }

func (p *echoProvider) Complete(_ context.Context, conversation string) (prompt.Completion, error) {
	p.calls++
	return prompt.Completion{Text: conversation}, nil
}

func TestGuardedProvider(t *testing.T) {
	tests := []struct {
		name      string
		checker   *fakeChecker
		opts      GuardOptions
		wantErr   error
		wantCalls int
	}{
		{
			name:      "no limits configured",
			checker:   &fakeChecker{},
			wantCalls: 1,
		},
		{
			name:      "within rate limit",
			checker:   &fakeChecker{rate: RateLimitResult{Allowed: true}},
			opts:      GuardOptions{RateLimit: config.RateLimit{RequestsPerMinute: 1}},
			wantCalls: 1,
		},
		{
			name:    "rate limited",
			checker: &fakeChecker{rate: RateLimitResult{LimitType: "minute", SecondsToReset: 12}},
			opts:    GuardOptions{RateLimit: config.RateLimit{RequestsPerMinute: 1}},
			wantErr: ErrRateLimited,
		},
		{
			name:    "token limited",
			checker: &fakeChecker{tokens: TokenLimitResult{TokensUsed: 90, TokensRemaining: 10}},
			opts: GuardOptions{
				TokenLimit: config.TokenLimit{TokensPerPeriod: 100, PeriodHours: 1},
				Tokenize:   tokens.Estimate,
			},
			wantErr: ErrTokenLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &echoProvider{}
			tt.opts.Logger = zerolog.Nop()
			guarded := Guard(next, tt.checker, tt.opts)

			_, err := guarded.Complete(context.Background(), "summarize this")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Complete() error = %v, want %v", err, tt.wantErr)
			}
			if next.calls != tt.wantCalls {
				t.Errorf("provider called %d times, want %d", next.calls, tt.wantCalls)
			}
		})
	}
}

func TestGuardedProvider_CountsPromptTokens(t *testing.T) {
	checker := &fakeChecker{tokens: TokenLimitResult{Allowed: true}}
	guarded := Guard(&echoProvider{}, checker, GuardOptions{
		TokenLimit: config.TokenLimit{TokensPerPeriod: 1000, PeriodHours: 1},
		Tokenize:   tokens.Estimate,
	})

	if _, err := guarded.Complete(context.Background(), "12345678"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(checker.tokenCalls) != 1 || checker.tokenCalls[0] != 2 {
		t.Errorf("token checks = %v, want [2]", checker.tokenCalls)
	}
}

func TestGuardedProvider_AsSummaryProvider(t *testing.T) {
	limiter := newTestLimiter(t)
	guarded := Guard(&echoProvider{}, limiter, GuardOptions{
		Scope:     "summarize",
		RateLimit: config.RateLimit{RequestsPerMinute: 1},
	})

	ctx := context.Background()
	if _, err := guarded.Complete(ctx, "first"); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	if _, err := guarded.Complete(ctx, "second"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second Complete() error = %v, want ErrRateLimited", err)
	}
}
