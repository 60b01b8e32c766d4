package storage

import (
	"fmt"
)

// Keys generates Redis keys with consistent naming
type Keys struct {
	prefix string
}

// NewKeys creates a new Keys generator
func NewKeys(prefix string) *Keys {
	return &Keys{prefix: prefix}
}

// Summary returns the key for the stored summary of a node id
func (k *Keys) Summary(id string) string {
	return fmt.Sprintf("%ssummary:%s", k.prefix, id)
}

// History returns the key for a conversation's message list
func (k *Keys) History(conversationID string) string {
	return fmt.Sprintf("%shistory:%s", k.prefix, conversationID)
}

// RateLimitMinute returns the key for per-minute rate limiting
func (k *Keys) RateLimitMinute(scope string) string {
	return fmt.Sprintf("%sratelimit:%s:minute", k.prefix, scope)
}

// RateLimitHour returns the key for per-hour rate limiting
func (k *Keys) RateLimitHour(scope string) string {
	return fmt.Sprintf("%sratelimit:%s:hour", k.prefix, scope)
}

// TokenLimit returns the key for token usage in the period starting at periodStart
func (k *Keys) TokenLimit(scope string, periodStart int64) string {
	return fmt.Sprintf("%stokens:%s:%d", k.prefix, scope, periodStart)
}
