package fit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/prompt"
	"github.com/s33g/promptfit/internal/tokens"
)

// DefaultMaxIterations bounds a fit run when Options.MaxIterations is zero
const DefaultMaxIterations = 1000

// Options configures an Engine
type Options struct {
	// Tokenize counts tokens; defaults to tokens.Estimate
	Tokenize prompt.Tokenizer
	// Project serializes nodes for counting; defaults to tokens.Project
	Project prompt.Projector
	// Ambient is handed to every strategy through FitContext
	Ambient prompt.Ambient
	// MaxIterations caps the number of reduction waves. Negative disables the cap.
	MaxIterations int
	Logger        zerolog.Logger
}

// Engine reduces prompt trees until they fit a token budget. The same
// tokenizer and projection measure every step of a run.
type Engine struct {
	tokenize      prompt.Tokenizer
	project       prompt.Projector
	ambient       prompt.Ambient
	maxIterations int
	logger        zerolog.Logger
}

// New creates a fit engine
func New(opts Options) *Engine {
	if opts.Tokenize == nil {
		opts.Tokenize = tokens.Estimate
	}
	if opts.Project == nil {
		opts.Project = tokens.Project
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Engine{
		tokenize:      opts.Tokenize,
		project:       opts.Project,
		ambient:       opts.Ambient,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger.With().Str("component", "fit").Logger(),
	}
}

// Fit runs a one-shot engine with default options apart from the given collaborators
func Fit(ctx context.Context, root *prompt.Node, budget int, tokenize prompt.Tokenizer, project prompt.Projector, ambient prompt.Ambient) (*prompt.Node, error) {
	return New(Options{Tokenize: tokenize, Project: project, Ambient: ambient}).Fit(ctx, root, budget)
}

// Measure returns the token count of a tree under this engine's projection
func (e *Engine) Measure(root *prompt.Node) int {
	return e.tokenize(e.project(root))
}

// Fit reduces root until its projected size is within budget. Each iteration
// reduces every node at the numerically highest priority that carries a
// strategy, bottom-up, then re-measures. The input tree is never modified.
//
// A failed fit returns a *FitError and no tree. Errors from strategies (for
// example a failed summarization call) are returned unchanged.
func (e *Engine) Fit(ctx context.Context, root *prompt.Node, budget int) (*prompt.Node, error) {
	if err := prompt.Validate(root); err != nil {
		return nil, err
	}

	logger := e.logger.With().
		Str("run_id", uuid.NewString()).
		Int("budget", budget).
		Logger()

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		total := e.Measure(root)
		if total <= budget {
			logger.Debug().
				Int("iteration", iteration).
				Int("total_tokens", total).
				Msg("Tree fits budget")
			return root, nil
		}
		over := total - budget

		worst, ok := worstPriority(root)
		if !ok {
			return nil, e.fail(logger, &FitError{OverBudgetBy: over, Priority: -1, Iteration: iteration, Reason: ReasonExhausted})
		}
		if e.maxIterations > 0 && iteration >= e.maxIterations {
			return nil, e.fail(logger, &FitError{OverBudgetBy: over, Priority: worst, Iteration: iteration, Reason: ReasonMaxIterations})
		}

		logger.Debug().
			Int("iteration", iteration).
			Int("total_tokens", total).
			Int("priority", worst).
			Msg("Reducing priority tier")

		w := &wave{
			priority: worst,
			base: prompt.FitContext{
				Budget:      budget,
				TotalTokens: total,
				Iteration:   iteration,
				Tokenize:    e.tokenize,
				Project:     e.project,
				Ambient:     e.ambient,
			},
		}
		next, changed, err := w.reduce(ctx, root)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, e.fail(logger, &FitError{OverBudgetBy: over, Priority: worst, Iteration: iteration, Reason: ReasonNoProgress})
		}
		if next == nil {
			next = prompt.Region()
		}
		root = next
	}
}

func (e *Engine) fail(logger zerolog.Logger, err *FitError) error {
	logger.Warn().
		Str("reason", string(err.Reason)).
		Int("over_budget_by", err.OverBudgetBy).
		Int("priority", err.Priority).
		Int("iteration", err.Iteration).
		Msg("Fit failed")
	return err
}

// worstPriority returns the highest priority attached to a node with a strategy
func worstPriority(root *prompt.Node) (int, bool) {
	worst, found := 0, false
	prompt.Walk(root, func(n *prompt.Node) bool {
		if n.Strategy() != nil && (!found || n.Priority() > worst) {
			worst, found = n.Priority(), true
		}
		return true
	})
	return worst, found
}

// wave applies every strategy of one priority tier. All invocations see the
// token count measured before the wave started.
type wave struct {
	priority int
	base     prompt.FitContext
}

// reduce rebuilds n post-order. It returns the replacement (nil to delete)
// and whether anything in the subtree was replaced or removed.
func (w *wave) reduce(ctx context.Context, n *prompt.Node) (*prompt.Node, bool, error) {
	children := n.Children()
	rebuilt := make([]prompt.Child, 0, len(children))
	childChanged := false

	for _, c := range children {
		child, ok := c.(*prompt.Node)
		if !ok {
			rebuilt = append(rebuilt, c)
			continue
		}
		r, changed, err := w.reduce(ctx, child)
		if err != nil {
			return nil, false, err
		}
		childChanged = childChanged || changed
		if r != nil {
			rebuilt = append(rebuilt, r)
		}
	}

	cur := n
	if childChanged {
		cur = n.WithChildren(rebuilt)
	}
	if cur.Priority() != w.priority || cur.Strategy() == nil {
		return cur, childChanged, nil
	}

	fc := w.base
	fc.Node = cur
	res, err := cur.Strategy()(ctx, cur, fc)
	if err != nil {
		return nil, false, err
	}
	if res == nil {
		return nil, true, nil
	}
	if prompt.Equal(res, cur) {
		return cur, childChanged, nil
	}
	return res, true, nil
}
