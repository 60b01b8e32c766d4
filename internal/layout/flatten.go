package layout

import (
	"github.com/rs/zerolog"
	"github.com/s33g/promptfit/internal/prompt"
)

// Flattener turns prompt trees into layouts. Nested messages that slipped past
// validation are dropped, logged and counted instead of failing the render.
type Flattener struct {
	logger  zerolog.Logger
	dropped int
}

// NewFlattener creates a flattener that logs to logger
func NewFlattener(logger zerolog.Logger) *Flattener {
	return &Flattener{logger: logger.With().Str("component", "layout").Logger()}
}

// Dropped returns how many nested messages have been discarded so far
func (f *Flattener) Dropped() int {
	return f.dropped
}

// Flatten walks root depth-first and produces the ordered message sequence
func Flatten(root *prompt.Node) Layout {
	return NewFlattener(zerolog.Nop()).Flatten(root)
}

// Flatten walks root depth-first and produces the ordered message sequence.
// Plain regions are transparent; content outside any message lands in an
// implicit user message.
func (f *Flattener) Flatten(root *prompt.Node) Layout {
	var (
		out   []Message
		loose []Part
	)
	flushLoose := func() {
		if len(loose) > 0 {
			out = append(out, split(prompt.RoleUser, loose)...)
			loose = nil
		}
	}

	var walk func(n *prompt.Node)
	walk = func(n *prompt.Node) {
		if m, ok := n.Kind().(prompt.Message); ok {
			flushLoose()
			var parts []Part
			for _, c := range n.Children() {
				parts = f.collect(parts, c)
			}
			out = append(out, split(m.Role, parts)...)
			return
		}
		if p, ok := leafPart(n); ok {
			loose = append(loose, p)
			return
		}
		for _, c := range n.Children() {
			switch c := c.(type) {
			case prompt.Text:
				loose = append(loose, TextPart{Text: string(c)})
			case *prompt.Node:
				walk(c)
			}
		}
	}

	if root != nil {
		walk(root)
	}
	flushLoose()
	return Layout{Messages: out}
}

// collect appends the parts found under c inside an enclosing message
func (f *Flattener) collect(parts []Part, c prompt.Child) []Part {
	switch c := c.(type) {
	case prompt.Text:
		return append(parts, TextPart{Text: string(c)})
	case *prompt.Node:
		if _, ok := c.Kind().(prompt.Message); ok {
			f.dropped++
			f.logger.Warn().
				Str("node", c.String()).
				Int("dropped", f.dropped).
				Msg("Dropping message nested inside another message")
			return parts
		}
		if p, ok := leafPart(c); ok {
			return append(parts, p)
		}
		for _, gc := range c.Children() {
			parts = f.collect(parts, gc)
		}
	}
	return parts
}

func leafPart(n *prompt.Node) (Part, bool) {
	switch k := n.Kind().(type) {
	case prompt.ToolCall:
		return ToolCallPart{CallID: k.CallID, Name: k.Name, Input: k.Input}, true
	case prompt.ToolResult:
		return ToolResultPart{CallID: k.CallID, Name: k.Name, Output: k.Output}, true
	case prompt.Reasoning:
		return ReasoningPart{Text: k.Text}, true
	default:
		return nil, false
	}
}

// split emits the messages for one source message. Tool results move into
// their own tool message; the remaining parts keep the source role. A source
// message without parts still yields one empty message.
func split(role prompt.Role, parts []Part) []Message {
	if role == prompt.RoleTool {
		return []Message{{Role: role, Parts: Coalesce(parts)}}
	}

	var (
		msgs  []Message
		cur   []Part
		tools []Part
	)
	for _, p := range parts {
		if _, ok := p.(ToolResultPart); ok {
			if len(cur) > 0 {
				msgs = append(msgs, Message{Role: role, Parts: Coalesce(cur)})
				cur = nil
			}
			tools = append(tools, p)
			continue
		}
		if len(tools) > 0 {
			msgs = append(msgs, Message{Role: prompt.RoleTool, Parts: tools})
			tools = nil
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		msgs = append(msgs, Message{Role: role, Parts: Coalesce(cur)})
	}
	if len(tools) > 0 {
		msgs = append(msgs, Message{Role: prompt.RoleTool, Parts: tools})
	}
	if len(msgs) == 0 {
		msgs = append(msgs, Message{Role: role, Parts: []Part{}})
	}
	return msgs
}

// Coalesce merges adjacent text parts, preserving order. It is idempotent.
func Coalesce(parts []Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if t, ok := p.(TextPart); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(TextPart); ok {
				out[len(out)-1] = TextPart{Text: prev.Text + t.Text}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
