package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/prompt"
)

// Registry manages LLM providers and their clients
type Registry struct {
	clients map[string]Chatter // key: provider name
	mu      sync.RWMutex
	config  *config.Config
}

// NewRegistry creates a client for every configured provider
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		clients: newClients(cfg),
		config:  cfg,
	}
}

func newClients(cfg *config.Config) map[string]Chatter {
	clients := make(map[string]Chatter, len(cfg.Providers))
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Type == config.ProviderOpenAI {
			clients[p.Name] = NewSDKClient(p)
		} else {
			clients[p.Name] = NewClient(p)
		}
	}
	return clients
}

// GetClient returns the client for a provider
func (r *Registry) GetClient(providerName string) (Chatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", providerName)
	}

	return client, nil
}

// Provider returns a completion provider bound to a model reference (e.g., "openai/gpt-4o").
// maxTokens <= 0 uses the provider's default_max_tokens.
func (r *Registry) Provider(modelRef string, maxTokens int) (*Completer, error) {
	r.mu.RLock()
	cfg := r.config
	r.mu.RUnlock()

	provider, model, err := cfg.ResolveModel(modelRef)
	if err != nil {
		return nil, err
	}

	client, err := r.GetClient(provider.Name)
	if err != nil {
		return nil, err
	}

	if maxTokens <= 0 {
		maxTokens = provider.DefaultMaxTokens
	}

	return &Completer{client: client, model: model.ID, maxTokens: maxTokens}, nil
}

// Reload reinitializes clients after config reload
func (r *Registry) Reload(cfg *config.Config) {
	clients := newClients(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = clients
	r.config = cfg
}

// Completer sends a single-prompt completion to one model
type Completer struct {
	client    Chatter
	model     string
	maxTokens int
}

// NewCompleter binds client to a model
func NewCompleter(client Chatter, model string, maxTokens int) *Completer {
	return &Completer{client: client, model: model, maxTokens: maxTokens}
}

// Model returns the bound model id
func (c *Completer) Model() string {
	return c.model
}

// Complete sends conversation as a single user message and returns the first choice
func (c *Completer) Complete(ctx context.Context, conversation string) (prompt.Completion, error) {
	resp, err := c.client.Chat(ctx, ChatRequest{
		Model:     c.model,
		Messages:  []Message{{Role: "user", Content: conversation}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return prompt.Completion{}, err
	}

	text, err := resp.Text()
	if err != nil {
		return prompt.Completion{}, err
	}
	return prompt.Completion{Text: text}, nil
}
