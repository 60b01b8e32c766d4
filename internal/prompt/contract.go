package prompt

import "context"

// Tokenizer counts tokens in a string. It must be pure and total.
type Tokenizer func(text string) int

// Projector serializes a node into the representative string that gets tokenized
type Projector func(n *Node) string

// Strategy rewrites a node into a smaller one. Returning (nil, nil) removes the
// node and its subtree from its parent. Strategies may block on I/O; the fit
// engine calls them one at a time.
type Strategy func(ctx context.Context, n *Node, fc FitContext) (*Node, error)

// Ambient carries collaborators a strategy may need
type Ambient struct {
	Provider CompletionProvider
}

// FitContext is the read-only input handed to a strategy invocation
type FitContext struct {
	Node        *Node
	Budget      int
	TotalTokens int
	Iteration   int
	Tokenize    Tokenizer
	Project     Projector
	Ambient     Ambient
}

// Count measures a subtree with the run's projection and tokenizer
func (fc FitContext) Count(n *Node) int {
	return fc.Tokenize(fc.Project(n))
}

// OverBudgetBy returns how many tokens the tree exceeded the budget by when the wave started
func (fc FitContext) OverBudgetBy() int {
	return fc.TotalTokens - fc.Budget
}

// Completion is a provider's response
type Completion struct {
	Text string
}

// CompletionProvider sends a rendered conversation to a model
type CompletionProvider interface {
	Complete(ctx context.Context, conversation string) (Completion, error)
}

// Summary is the persisted state of a summarized region
type Summary struct {
	Content string `json:"content"`
}

// SummaryStore persists summaries keyed by node id. Get returns (nil, nil) when
// no summary exists. Concurrent writers to the same id race; last write wins.
type SummaryStore interface {
	Get(ctx context.Context, id string) (*Summary, error)
	Set(ctx context.Context, id string, s Summary) error
}
