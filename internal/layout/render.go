package layout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/s33g/promptfit/internal/prompt"
)

// Render produces a plain-text transcript of a layout
func Render(l Layout) string {
	var sb strings.Builder
	for i, m := range l.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		for j, p := range m.Parts {
			if j > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderPart(p))
		}
	}
	return sb.String()
}

// RenderPart renders a single part the way Render does
func RenderPart(p Part) string {
	switch p := p.(type) {
	case TextPart:
		return p.Text
	case ReasoningPart:
		return "(reasoning) " + p.Text
	case ToolCallPart:
		return fmt.Sprintf("[tool-call %s#%s] %s", p.Name, p.CallID, encode(p.Input))
	case ToolResultPart:
		return fmt.Sprintf("[tool-result %s#%s] %s", p.Name, p.CallID, encode(p.Output))
	default:
		return ""
	}
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// ToNodes rebuilds prompt message nodes from a layout, e.g. stored history
func ToNodes(l Layout) []prompt.Child {
	children := make([]prompt.Child, 0, len(l.Messages))
	for _, m := range l.Messages {
		parts := make([]prompt.Child, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p := p.(type) {
			case TextPart:
				parts = append(parts, prompt.Text(p.Text))
			case ReasoningPart:
				parts = append(parts, prompt.NewReasoning(p.Text))
			case ToolCallPart:
				if n, err := prompt.NewToolCall(p.CallID, p.Name, p.Input); err == nil {
					parts = append(parts, n)
				}
			case ToolResultPart:
				if n, err := prompt.NewToolResult(p.CallID, p.Name, p.Output); err == nil {
					parts = append(parts, n)
				}
			}
		}
		children = append(children, prompt.NewMessage(m.Role, parts...))
	}
	return children
}
