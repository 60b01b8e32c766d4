// Package history stores conversation turns in Redis and turns them back
// into prompt regions that the fit engine can trim.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/fit"
	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/storage"
)

// Manager handles conversation history storage and retrieval
type Manager struct {
	client      *storage.Client
	ttl         time.Duration
	maxMessages int
	logger      zerolog.Logger
}

// NewManager creates a new history manager. maxMessages <= 0 keeps every message.
func NewManager(client *storage.Client, ttl time.Duration, maxMessages int, logger zerolog.Logger) *Manager {
	return &Manager{
		client:      client,
		ttl:         ttl,
		maxMessages: maxMessages,
		logger:      logger.With().Str("component", "history").Logger(),
	}
}

// Append adds messages to the end of a conversation
func (m *Manager) Append(ctx context.Context, conversationID string, msgs ...layout.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	key := m.client.Keys().History(conversationID)

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, string(data))
	}

	pipe := m.client.Redis().Pipeline()
	pipe.RPush(ctx, key, values...)
	if m.maxMessages > 0 {
		pipe.LTrim(ctx, key, -int64(m.maxMessages), -1)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}

	return nil
}

// Load returns every stored message of a conversation, oldest first
func (m *Manager) Load(ctx context.Context, conversationID string) (layout.Layout, error) {
	key := m.client.Keys().History(conversationID)

	data, err := m.client.Redis().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return layout.Layout{}, fmt.Errorf("failed to load messages: %w", err)
	}

	msgs := make([]layout.Message, 0, len(data))
	for i, d := range data {
		var msg layout.Message
		if err := json.Unmarshal([]byte(d), &msg); err != nil {
			m.logger.Warn().
				Err(err).
				Str("conversation_id", conversationID).
				Int("index", i).
				Msg("Skipping malformed history entry")
			continue
		}
		msgs = append(msgs, msg)
	}

	return layout.Layout{Messages: msgs}, nil
}

// Clear removes a conversation's history
func (m *Manager) Clear(ctx context.Context, conversationID string) error {
	if err := m.client.Redis().Del(ctx, m.client.Keys().History(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// Region builds a prompt region from stored messages. The region drops its
// oldest messages first when over budget; opts are applied after that
// default, so a caller can change the strategy, priority or id.
func Region(l layout.Layout, opts ...prompt.Option) *prompt.Node {
	n := prompt.Region(layout.ToNodes(l)...).With(prompt.WithStrategy(fit.Truncate(fit.TruncateOptions{})))
	return n.With(opts...)
}
