package tokens

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/s33g/promptfit/internal/prompt"
)

// Project serializes a node into the representative text the fit engine
// tokenizes. It is deterministic and independent of any wire codec.
func Project(n *prompt.Node) string {
	var sb strings.Builder
	project(&sb, n)
	return sb.String()
}

func project(sb *strings.Builder, n *prompt.Node) {
	if n == nil {
		return
	}
	switch k := n.Kind().(type) {
	case prompt.ToolCall:
		fmt.Fprintf(sb, "[tool-call %s#%s] %s", k.Name, k.CallID, encode(k.Input))
		return
	case prompt.ToolResult:
		fmt.Fprintf(sb, "[tool-result %s#%s] %s", k.Name, k.CallID, encode(k.Output))
		return
	case prompt.Reasoning:
		sb.WriteString(k.Text)
		return
	case prompt.Message:
		sb.WriteString(string(k.Role))
		sb.WriteString(": ")
		projectChildren(sb, n)
		sb.WriteString("\n")
		return
	}
	projectChildren(sb, n)
}

func projectChildren(sb *strings.Builder, n *prompt.Node) {
	for i := 0; i < n.Len(); i++ {
		switch c := n.Child(i).(type) {
		case prompt.Text:
			sb.WriteString(string(c))
		case *prompt.Node:
			project(sb, c)
		}
	}
}

// encoding/json sorts map keys, which keeps the projection deterministic
func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Measure counts the tokens of a node with the given tokenizer and projection
func Measure(n *prompt.Node, tokenize prompt.Tokenizer, projector prompt.Projector) int {
	return tokenize(projector(n))
}
