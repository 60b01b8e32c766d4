package prompt

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidNode is returned by constructors when a node's local shape is wrong
var ErrInvalidNode = errors.New("invalid node")

// Child is an element of a node's children: either Text or *Node
type Child interface {
	isChild()
}

// Text is a raw string child
type Text string

func (Text) isChild()  {}
func (*Node) isChild() {}

// Node is an immutable region of a prompt tree. Every modifier returns a copy,
// so one subtree can be shared across fit runs without being disturbed.
type Node struct {
	priority int
	strategy Strategy
	id       string
	kind     Kind
	children []Child
}

// Option configures a node
type Option func(*Node)

// WithPriority sets the node priority. Lower numbers are more important.
func WithPriority(p int) Option {
	return func(n *Node) { n.priority = p }
}

// WithStrategy sets the function used to shrink the node under budget pressure
func WithStrategy(s Strategy) Option {
	return func(n *Node) { n.strategy = s }
}

// WithID sets the node id used for debugging and stateful strategies
func WithID(id string) Option {
	return func(n *Node) { n.id = id }
}

// Region creates a plain structural node
func Region(children ...Child) *Node {
	return &Node{children: slices.Clone(children)}
}

// NewMessage creates a message node with the given role
func NewMessage(role Role, children ...Child) *Node {
	return &Node{kind: Message{Role: role}, children: slices.Clone(children)}
}

// NewToolCall creates a tool-call leaf. Call id and tool name are required.
func NewToolCall(callID, name string, input any) (*Node, error) {
	if callID == "" || name == "" {
		return nil, fmt.Errorf("%w: tool-call requires call id and tool name", ErrInvalidNode)
	}
	return &Node{kind: ToolCall{CallID: callID, Name: name, Input: input}}, nil
}

// NewToolResult creates a tool-result leaf. Call id and tool name are required.
func NewToolResult(callID, name string, output ToolOutput) (*Node, error) {
	if callID == "" || name == "" {
		return nil, fmt.Errorf("%w: tool-result requires call id and tool name", ErrInvalidNode)
	}
	if output.Type == "" {
		output.Type = "text"
	}
	if output.Type != "text" && output.Type != "json" {
		return nil, fmt.Errorf("%w: unknown tool output type %q", ErrInvalidNode, output.Type)
	}
	return &Node{kind: ToolResult{CallID: callID, Name: name, Output: output}}, nil
}

// NewReasoning creates a reasoning leaf
func NewReasoning(text string) *Node {
	return &Node{kind: Reasoning{Text: text}}
}

// MustToolCall is like NewToolCall but panics on error
func MustToolCall(callID, name string, input any) *Node {
	n, err := NewToolCall(callID, name, input)
	if err != nil {
		panic(err)
	}
	return n
}

// MustToolResult is like NewToolResult but panics on error
func MustToolResult(callID, name string, output ToolOutput) *Node {
	n, err := NewToolResult(callID, name, output)
	if err != nil {
		panic(err)
	}
	return n
}

// Texts converts strings into text children
func Texts(texts ...string) []Child {
	children := make([]Child, len(texts))
	for i, t := range texts {
		children[i] = Text(t)
	}
	return children
}

// With returns a copy of n with the options applied
func (n *Node) With(opts ...Option) *Node {
	c := n.clone()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithChildren returns a copy of n whose children are replaced
func (n *Node) WithChildren(children []Child) *Node {
	c := n.clone()
	c.children = slices.Clone(children)
	return c
}

func (n *Node) clone() *Node {
	c := *n
	c.children = slices.Clone(n.children)
	return &c
}

// Priority returns the node priority
func (n *Node) Priority() int { return n.priority }

// Strategy returns the node strategy, nil if the node is never reduced
func (n *Node) Strategy() Strategy { return n.strategy }

// ID returns the node id
func (n *Node) ID() string { return n.id }

// Kind returns the node kind, nil for plain regions
func (n *Node) Kind() Kind { return n.kind }

// Children returns a copy of the node children
func (n *Node) Children() []Child { return slices.Clone(n.children) }

// Len returns the number of children
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child
func (n *Node) Child(i int) Child { return n.children[i] }

// String returns a short description for logs and errors
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	s := KindName(n.kind)
	if m, ok := n.kind.(Message); ok {
		s += "(" + string(m.Role) + ")"
	}
	if n.id != "" {
		s += "#" + n.id
	}
	return fmt.Sprintf("%s[p=%d]", s, n.priority)
}
