package prompt

import "fmt"

// Role identifies who authored a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Kind makes a node semantic. A node with a nil Kind is a plain structural region.
type Kind interface {
	kindName() string
}

// Message is a container kind; its subtree becomes one entry of the layout
type Message struct {
	Role Role
}

// ToolCall is a childless leaf carrying a model's request to run a tool
type ToolCall struct {
	CallID string
	Name   string
	Input  any
}

// ToolResult is a childless leaf carrying the output of a tool run
type ToolResult struct {
	CallID string
	Name   string
	Output ToolOutput
}

// ToolOutput is the payload of a tool result ("text" or "json")
type ToolOutput struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// Reasoning is a childless leaf carrying model reasoning text
type Reasoning struct {
	Text string
}

func (Message) kindName() string    { return "message" }
func (ToolCall) kindName() string   { return "tool-call" }
func (ToolResult) kindName() string { return "tool-result" }
func (Reasoning) kindName() string  { return "reasoning" }

// KindName returns a stable name for k, "region" for plain nodes
func KindName(k Kind) string {
	if k == nil {
		return "region"
	}
	return k.kindName()
}

// IsLeaf reports whether k is one of the childless semantic kinds
func IsLeaf(k Kind) bool {
	switch k.(type) {
	case ToolCall, ToolResult, Reasoning:
		return true
	default:
		return false
	}
}
