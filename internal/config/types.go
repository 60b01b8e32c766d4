package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Fit       FitConfig       `yaml:"fit"`
	Summary   SummaryConfig   `yaml:"summary"`
	Redis     RedisConfig     `yaml:"redis"`
	History   HistoryConfig   `yaml:"history"`
	Providers []Provider      `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TokenizerConfig selects the tiktoken encoding used for measuring
type TokenizerConfig struct {
	Model    string `yaml:"model"`
	Encoding string `yaml:"encoding,omitempty"` // Overrides the model mapping
}

// FitConfig holds fit engine defaults
type FitConfig struct {
	Budget        int `yaml:"budget"`
	MaxIterations int `yaml:"max_iterations"`
}

// Summary store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// SummaryConfig configures the summarize strategy's collaborators
type SummaryConfig struct {
	Store      string    `yaml:"store"`
	SQLitePath string    `yaml:"sqlite_path"`
	Provider   string    `yaml:"provider"` // provider/model reference, empty disables
	MaxTokens  int       `yaml:"max_tokens"`
	TTLHours   int       `yaml:"ttl_hours"` // Redis store only, 0 keeps summaries forever
	RateLimit  RateLimit  `yaml:"rate_limit"`
	TokenLimit TokenLimit `yaml:"token_limit"`
}

// TTL returns the summary TTL as a Duration
func (s *SummaryConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address     string `yaml:"address"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// HistoryConfig controls stored conversation history
type HistoryConfig struct {
	TTLHours    int `yaml:"ttl_hours"`
	MaxMessages int `yaml:"max_messages"`
}

// TTL returns the history TTL as a Duration
func (h *HistoryConfig) TTL() time.Duration {
	return time.Duration(h.TTLHours) * time.Hour
}

// Provider types
const (
	ProviderCompatible = "compatible" // Any OpenAI-compatible endpoint over plain HTTP
	ProviderOpenAI     = "openai"     // go-openai SDK
)

// Provider represents an LLM provider configuration
type Provider struct {
	Name             string  `yaml:"name"`
	Type             string  `yaml:"type"`
	BaseURL          string  `yaml:"base_url"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	DefaultMaxTokens int     `yaml:"default_max_tokens"`
	Models           []Model `yaml:"models"`
}

// Model represents an LLM model configuration
type Model struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	ContextWindow int    `yaml:"context_window"`
}

// RateLimit defines rate limiting parameters
type RateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
}

// Enabled reports whether any limit is set
func (r RateLimit) Enabled() bool {
	return r.RequestsPerMinute > 0 || r.RequestsPerHour > 0
}

// TokenLimit caps the prompt tokens sent for summarization per period
type TokenLimit struct {
	TokensPerPeriod int `yaml:"tokens_per_period"`
	PeriodHours     int `yaml:"period_hours"`
}

// Enabled reports whether a token cap is set
func (t TokenLimit) Enabled() bool {
	return t.TokensPerPeriod > 0
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UsesRedis reports whether any configured component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Summary.Store == StoreRedis || c.Summary.RateLimit.Enabled() || c.Summary.TokenLimit.Enabled()
}
