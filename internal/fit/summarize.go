package fit

import (
	"context"
	"fmt"
	"strings"

	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
)

// SummaryHeader prefixes the text that replaces a summarized subtree
const SummaryHeader = "[Summary of earlier conversation]\n"

// SummaryRequest is the input to a summarizer
type SummaryRequest struct {
	Subtree         *prompt.Node
	PreviousSummary string
	Provider        prompt.CompletionProvider
}

// SummarizerFunc produces summary text for a subtree
type SummarizerFunc func(ctx context.Context, req SummaryRequest) (string, error)

// Summarize replaces the node's children with a single summary text child.
//
// The previous summary for the node id is read from store before the call
// and the new one written back after, so repeated fits of the same id
// compress incrementally and a second run can differ from the first. A nil
// store or an empty id disables persistence. Without a summarizer the ambient
// completion provider is used; a missing provider fails with ErrNoProvider.
// Provider and store errors are returned as-is. Concurrent fits that share
// an id race on the store and the last write wins; use one id per conversation.
func Summarize(store prompt.SummaryStore, summarizer SummarizerFunc) prompt.Strategy {
	if summarizer == nil {
		summarizer = DefaultSummarizer
	}
	return func(ctx context.Context, n *prompt.Node, fc prompt.FitContext) (*prompt.Node, error) {
		id := n.ID()
		persist := store != nil && id != ""

		var previous string
		if persist {
			s, err := store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if s != nil {
				previous = s.Content
			}
		}

		summary, err := summarizer(ctx, SummaryRequest{
			Subtree:         n,
			PreviousSummary: previous,
			Provider:        fc.Ambient.Provider,
		})
		if err != nil {
			return nil, err
		}

		if persist {
			if err := store.Set(ctx, id, prompt.Summary{Content: summary}); err != nil {
				return nil, err
			}
		}

		text := []prompt.Child{prompt.Text(SummaryHeader + summary)}
		if prompt.IsLeaf(n.Kind()) {
			// leaves can't hold children, so the summary takes the leaf's place
			return prompt.Region(text...).With(
				prompt.WithPriority(n.Priority()),
				prompt.WithID(n.ID()),
				prompt.WithStrategy(n.Strategy()),
			), nil
		}
		return n.WithChildren(text), nil
	}
}

// DefaultSummarizer renders the subtree as a transcript and asks the provider for a summary
func DefaultSummarizer(ctx context.Context, req SummaryRequest) (string, error) {
	if req.Provider == nil {
		return "", ErrNoProvider
	}

	completion, err := req.Provider.Complete(ctx, SummaryPrompt(req.PreviousSummary, layout.Render(layout.Flatten(req.Subtree))))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Text), nil
}

// SummaryPrompt builds the instruction sent to the completion provider
func SummaryPrompt(previous, conversation string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the conversation below so the summary can replace it in a later prompt. ")
	sb.WriteString("Keep facts, decisions and tool results that later turns depend on. Reply with the summary only.\n\n")
	if previous != "" {
		fmt.Fprintf(&sb, "Existing summary to extend:\n%s\n\n", previous)
	}
	fmt.Fprintf(&sb, "Conversation:\n%s", conversation)
	return sb.String()
}
