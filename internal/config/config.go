package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Fit.Budget <= 0 {
		return fmt.Errorf("fit.budget must be positive")
	}
	if c.Fit.MaxIterations < 0 {
		return fmt.Errorf("fit.max_iterations must not be negative")
	}

	switch c.Summary.Store {
	case StoreMemory, StoreRedis:
	case StoreSQLite:
		if c.Summary.SQLitePath == "" {
			return fmt.Errorf("summary.sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("summary.store must be one of memory, redis, sqlite (got %q)", c.Summary.Store)
	}

	if c.UsesRedis() && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	if c.Summary.TokenLimit.Enabled() && c.Summary.TokenLimit.PeriodHours <= 0 {
		return fmt.Errorf("summary.token_limit.period_hours must be positive")
	}

	if c.History.MaxMessages < 0 {
		return fmt.Errorf("history.max_messages must not be negative")
	}

	providerModels := make(map[string]bool)
	for i, provider := range c.Providers {
		if provider.Name == "" {
			return fmt.Errorf("provider[%d].name is required", i)
		}
		switch provider.Type {
		case "", ProviderCompatible:
			if provider.BaseURL == "" {
				return fmt.Errorf("provider[%d].base_url is required", i)
			}
		case ProviderOpenAI:
		default:
			return fmt.Errorf("provider[%d].type must be compatible or openai (got %q)", i, provider.Type)
		}
		if len(provider.Models) == 0 {
			return fmt.Errorf("provider[%d] must have at least one model", i)
		}

		for j, model := range provider.Models {
			if model.ID == "" {
				return fmt.Errorf("provider[%d].models[%d].id is required", i, j)
			}

			// Track provider/model combinations
			providerModels[provider.Name+"/"+model.ID] = true
		}
	}

	if c.Summary.Provider != "" && !providerModels[c.Summary.Provider] {
		return fmt.Errorf("summary.provider references unknown model: %s", c.Summary.Provider)
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}

	return nil
}

// GetProvider returns a provider by name
func (c *Config) GetProvider(name string) (*Provider, error) {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("provider %s not found", name)
}

// ResolveModel returns the provider and model for a model reference (e.g., "openai/gpt-4o")
func (c *Config) ResolveModel(modelRef string) (*Provider, *Model, error) {
	providerName, modelID, _ := strings.Cut(modelRef, "/")
	if providerName == "" || modelID == "" {
		return nil, nil, fmt.Errorf("invalid model reference: %s (expected format: provider/model)", modelRef)
	}

	// Find provider
	provider, err := c.GetProvider(providerName)
	if err != nil {
		return nil, nil, err
	}

	// Find model
	for i := range provider.Models {
		if provider.Models[i].ID == modelID {
			return provider, &provider.Models[i], nil
		}
	}

	return nil, nil, fmt.Errorf("model %s not found in provider %s", modelID, providerName)
}
