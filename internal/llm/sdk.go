package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/s33g/promptfit/internal/config"
	"github.com/sashabaranov/go-openai"
)

// SDKClient talks to OpenAI (or a proxy in front of it) through go-openai
type SDKClient struct {
	client *openai.Client
	name   string
}

// NewSDKClient creates a go-openai backed client. An empty base URL keeps the SDK default.
func NewSDKClient(provider *config.Provider) *SDKClient {
	apiKey := ""
	if provider.APIKeyEnv != "" {
		apiKey = os.Getenv(provider.APIKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if provider.BaseURL != "" {
		cfg.BaseURL = provider.BaseURL
	}

	return &SDKClient{
		client: openai.NewClientWithConfig(cfg),
		name:   provider.Name,
	}
}

// Chat sends a chat completion request
func (c *SDKClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.name, err)
	}

	out := &ChatResponse{
		ID:      resp.ID,
		Created: resp.Created,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        ch.Index,
			Message:      Message{Role: ch.Message.Role, Content: ch.Message.Content},
			FinishReason: string(ch.FinishReason),
		})
	}
	return out, nil
}
