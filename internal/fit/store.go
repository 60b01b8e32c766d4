package fit

import (
	"context"
	"sync"

	"github.com/s33g/promptfit/internal/prompt"
)

// MemoryStore is an in-process SummaryStore
type MemoryStore struct {
	mu        sync.RWMutex
	summaries map[string]prompt.Summary
}

// NewMemoryStore creates an empty in-memory summary store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{summaries: make(map[string]prompt.Summary)}
}

// Get returns the summary stored for id, or nil
func (s *MemoryStore) Get(_ context.Context, id string) (*prompt.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.summaries[id]
	if !ok {
		return nil, nil
	}
	return &sum, nil
}

// Set stores the summary for id
func (s *MemoryStore) Set(_ context.Context, id string, sum prompt.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[id] = sum
	return nil
}
