package fit

import (
	"context"
	"fmt"

	"github.com/s33g/promptfit/internal/prompt"
)

// Omit removes the node and its subtree once its priority tier is reduced
func Omit(_ context.Context, _ *prompt.Node, _ prompt.FitContext) (*prompt.Node, error) {
	return nil, nil
}

// Direction selects which end Truncate drops children from
type Direction string

const (
	// DirectionStart drops the leading (oldest) children
	DirectionStart Direction = "start"
	// DirectionEnd drops the trailing children
	DirectionEnd Direction = "end"
)

// ParseDirection validates a direction name. Empty means DirectionStart.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", DirectionStart:
		return DirectionStart, nil
	case DirectionEnd:
		return DirectionEnd, nil
	default:
		return "", fmt.Errorf("unknown truncate direction %q (expected start or end)", s)
	}
}

// TruncateOptions configures Truncate
type TruncateOptions struct {
	// Budget scales the drop count; zero uses the fit budget
	Budget    int
	Direction Direction
}

// Truncate drops whole children from one end of the node. Each invocation
// drops max(1, totalTokens/budget) children, so trees far over budget shrink
// in fewer waves. A node that would lose every child is removed instead.
func Truncate(opts TruncateOptions) prompt.Strategy {
	return func(_ context.Context, n *prompt.Node, fc prompt.FitContext) (*prompt.Node, error) {
		children := n.Children()
		drop := DropCount(fc.TotalTokens, opts.Budget, fc.Budget)
		if drop >= len(children) {
			return nil, nil
		}
		if opts.Direction == DirectionEnd {
			return n.WithChildren(children[:len(children)-drop]), nil
		}
		return n.WithChildren(children[drop:]), nil
	}
}

// DropCount returns how many children Truncate removes in one invocation
func DropCount(totalTokens, budget, fallback int) int {
	if budget <= 0 {
		budget = fallback
	}
	if budget <= 0 {
		return 1
	}
	return max(1, totalTokens/budget)
}
