// Package document decodes YAML prompt documents into prompt trees.
//
// A document is a mapping describing the root region. Every child is either
// a scalar (a text leaf) or a mapping describing a node:
//
//	budget: 1024
//	children:
//	  - role: system
//	    content: You are a terse assistant.
//	  - id: thread-1
//	    priority: 2
//	    strategy: summarize
//	    history: thread-1
//	  - role: user
//	    children:
//	      - What changed since yesterday?
//	      - tool_result: {id: c1, name: diff, output: {type: json, value: {files: 3}}}
//
// Node fields: id, priority, strategy, last, children and at most one of
// role, tool_call, tool_result, reasoning or history. A mapping with none of
// them is a plain region. content is shorthand for a single text child.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/s33g/promptfit/internal/fit"
	"github.com/s33g/promptfit/internal/history"
	"github.com/s33g/promptfit/internal/layout"
	"github.com/s33g/promptfit/internal/prompt"
	"gopkg.in/yaml.v3"
)

// ErrNoHistory is returned when a document references history but no source is configured
var ErrNoHistory = errors.New("document: history source not configured")

// Document is a decoded prompt document
type Document struct {
	// Budget is the document's own token budget, 0 when unset
	Budget int
	Root   *prompt.Node
}

// HistorySource loads stored conversation messages
type HistorySource interface {
	Load(ctx context.Context, conversationID string) (layout.Layout, error)
}

// Decoder turns YAML into prompt trees. Summarize strategies share Store and
// history nodes are read from History; both may be nil.
type Decoder struct {
	Store   prompt.SummaryStore
	History HistorySource
}

// DecodeFile reads and decodes the document at path
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return d.Decode(ctx, bytes.NewReader(data))
}

// Decode reads one YAML document from r
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	body := &root
	if body.Kind == yaml.DocumentNode && len(body.Content) == 1 {
		body = body.Content[0]
	}
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document must be a mapping", body.Line)
	}

	var raw rawDocument
	if err := body.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if raw.Budget < 0 {
		return nil, fmt.Errorf("line %d: budget must not be negative", body.Line)
	}

	n, err := d.node(ctx, body, &raw.rawNode)
	if err != nil {
		return nil, err
	}
	if err := prompt.Validate(n); err != nil {
		return nil, err
	}

	return &Document{Budget: raw.Budget, Root: n}, nil
}

type rawDocument struct {
	Budget  int `yaml:"budget"`
	rawNode `yaml:",inline"`
}

type rawNode struct {
	ID       string       `yaml:"id"`
	Priority int          `yaml:"priority"`
	Strategy *rawStrategy `yaml:"strategy"`
	Last     int          `yaml:"last"`
	Content  *string      `yaml:"content"`
	Children []yaml.Node  `yaml:"children"`

	Role       string         `yaml:"role"`
	ToolCall   *rawToolCall   `yaml:"tool_call"`
	ToolResult *rawToolResult `yaml:"tool_result"`
	Reasoning  *string        `yaml:"reasoning"`
	History    string         `yaml:"history"`
}

type rawToolCall struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Input any    `yaml:"input"`
}

type rawToolResult struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Output prompt.ToolOutput `yaml:"output"`
}

// rawStrategy accepts either a bare name or a mapping with options
type rawStrategy struct {
	Type      string `yaml:"type"`
	Direction string `yaml:"direction"`
	Budget    int    `yaml:"budget"`
}

func (s *rawStrategy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Type = value.Value
		return nil
	}
	type plain rawStrategy
	return value.Decode((*plain)(s))
}

func (d *Decoder) child(ctx context.Context, v *yaml.Node) (prompt.Child, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		return prompt.Text(v.Value), nil
	case yaml.MappingNode:
		var raw rawNode
		if err := v.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		return d.node(ctx, v, &raw)
	default:
		return nil, fmt.Errorf("line %d: child must be text or a mapping", v.Line)
	}
}

func (d *Decoder) node(ctx context.Context, v *yaml.Node, raw *rawNode) (*prompt.Node, error) {
	kinds := 0
	for _, set := range []bool{raw.Role != "", raw.ToolCall != nil, raw.ToolResult != nil, raw.Reasoning != nil, raw.History != ""} {
		if set {
			kinds++
		}
	}
	if kinds > 1 {
		return nil, fmt.Errorf("line %d: node may set only one of role, tool_call, tool_result, reasoning, history", v.Line)
	}

	var opts []prompt.Option
	if raw.Priority != 0 {
		opts = append(opts, prompt.WithPriority(raw.Priority))
	}
	if raw.ID != "" {
		opts = append(opts, prompt.WithID(raw.ID))
	}
	if raw.Strategy != nil {
		s, err := d.strategy(raw.Strategy)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		opts = append(opts, prompt.WithStrategy(s))
	}

	leaf := raw.ToolCall != nil || raw.ToolResult != nil || raw.Reasoning != nil
	if leaf && (len(raw.Children) > 0 || raw.Content != nil) {
		return nil, fmt.Errorf("line %d: tool calls, tool results and reasoning cannot have children", v.Line)
	}

	switch {
	case raw.ToolCall != nil:
		n, err := prompt.NewToolCall(raw.ToolCall.ID, raw.ToolCall.Name, raw.ToolCall.Input)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		return n.With(opts...), nil
	case raw.ToolResult != nil:
		n, err := prompt.NewToolResult(raw.ToolResult.ID, raw.ToolResult.Name, raw.ToolResult.Output)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		return n.With(opts...), nil
	case raw.Reasoning != nil:
		return prompt.NewReasoning(*raw.Reasoning).With(opts...), nil
	}

	var children []prompt.Child
	if raw.Content != nil {
		children = append(children, prompt.Text(*raw.Content))
	}
	for i := range raw.Children {
		c, err := d.child(ctx, &raw.Children[i])
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	if raw.History != "" {
		if d.History == nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, ErrNoHistory)
		}
		l, err := d.History.Load(ctx, raw.History)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		stored := history.Region(l, opts...)
		children = append(stored.Children(), children...)
		if raw.Last > 0 {
			children = prompt.Last(raw.Last, children...)
		}
		return stored.WithChildren(children), nil
	}

	if raw.Last > 0 {
		children = prompt.Last(raw.Last, children...)
	}

	if raw.Role != "" {
		role, err := prompt.ParseRole(raw.Role)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		return prompt.NewMessage(role, children...).With(opts...), nil
	}
	return prompt.Region(children...).With(opts...), nil
}

func (d *Decoder) strategy(raw *rawStrategy) (prompt.Strategy, error) {
	switch raw.Type {
	case "omit":
		return fit.Omit, nil
	case "truncate":
		dir, err := fit.ParseDirection(raw.Direction)
		if err != nil {
			return nil, err
		}
		return fit.Truncate(fit.TruncateOptions{Budget: raw.Budget, Direction: dir}), nil
	case "summarize":
		return fit.Summarize(d.Store, nil), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (expected omit, truncate or summarize)", raw.Type)
	}
}
