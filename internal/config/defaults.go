package config

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tokenizer: TokenizerConfig{
			Model: "gpt-4o",
		},
		Fit: FitConfig{
			Budget:        4096,
			MaxIterations: 1000,
		},
		Summary: SummaryConfig{
			Store:      StoreMemory,
			SQLitePath: "data/summaries.db",
			MaxTokens:  512,
			TokenLimit: TokenLimit{
				PeriodHours: 24,
			},
		},
		Redis: RedisConfig{
			Address:   "localhost:6379",
			DB:        0,
			KeyPrefix: "promptfit:",
		},
		History: HistoryConfig{
			TTLHours:    168, // 7 days
			MaxMessages: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
