package fit

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned by Summarize when neither a summarizer nor an
// ambient completion provider is configured
var ErrNoProvider = errors.New("summarize: no completion provider configured")

// Reason explains why a fit failed
type Reason string

const (
	// ReasonExhausted means no node with a strategy is left while still over budget
	ReasonExhausted Reason = "exhausted"
	// ReasonNoProgress means a reduction wave left the tree unchanged
	ReasonNoProgress Reason = "no-progress"
	// ReasonMaxIterations means the iteration ceiling was reached
	ReasonMaxIterations Reason = "max-iterations"
)

// FitError reports a tree that could not be reduced to the budget.
// Priority is -1 when no strategies were left.
type FitError struct {
	OverBudgetBy int
	Priority     int
	Iteration    int
	Reason       Reason
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit failed (%s): over budget by %d tokens at priority %d, iteration %d",
		e.Reason, e.OverBudgetBy, e.Priority, e.Iteration)
}
