package layout

import (
	"encoding/json"
	"fmt"

	"github.com/s33g/promptfit/internal/prompt"
)

// Layout is the canonical flattened form of a prompt tree, consumed by codecs
type Layout struct {
	Messages []Message `json:"messages"`
}

// Message is one layout entry
type Message struct {
	Role  prompt.Role `json:"role"`
	Parts []Part      `json:"parts"`
}

// Part is a coalesced unit of message content
type Part interface {
	PartType() string
}

// TextPart is plain text
type TextPart struct {
	Text string
}

// ReasoningPart is model reasoning
type ReasoningPart struct {
	Text string
}

// ToolCallPart is a request to run a tool
type ToolCallPart struct {
	CallID string
	Name   string
	Input  any
}

// ToolResultPart is the output of a tool run
type ToolResultPart struct {
	CallID string
	Name   string
	Output prompt.ToolOutput
}

func (TextPart) PartType() string       { return "text" }
func (ReasoningPart) PartType() string  { return "reasoning" }
func (ToolCallPart) PartType() string   { return "tool-call" }
func (ToolResultPart) PartType() string { return "tool-result" }

type partJSON struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	CallID string             `json:"call_id,omitempty"`
	Name   string             `json:"name,omitempty"`
	Input  any                `json:"input,omitempty"`
	Output *prompt.ToolOutput `json:"output,omitempty"`
}

type messageJSON struct {
	Role  prompt.Role `json:"role"`
	Parts []partJSON  `json:"parts"`
}

// MarshalJSON encodes parts with an explicit type discriminator
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{Role: m.Role, Parts: make([]partJSON, 0, len(m.Parts))}
	for _, p := range m.Parts {
		pj := partJSON{Type: p.PartType()}
		switch p := p.(type) {
		case TextPart:
			pj.Text = p.Text
		case ReasoningPart:
			pj.Text = p.Text
		case ToolCallPart:
			pj.CallID, pj.Name, pj.Input = p.CallID, p.Name, p.Input
		case ToolResultPart:
			output := p.Output
			pj.CallID, pj.Name, pj.Output = p.CallID, p.Name, &output
		}
		out.Parts = append(out.Parts, pj)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Role = in.Role
	m.Parts = make([]Part, 0, len(in.Parts))
	for _, pj := range in.Parts {
		switch pj.Type {
		case "text":
			m.Parts = append(m.Parts, TextPart{Text: pj.Text})
		case "reasoning":
			m.Parts = append(m.Parts, ReasoningPart{Text: pj.Text})
		case "tool-call":
			m.Parts = append(m.Parts, ToolCallPart{CallID: pj.CallID, Name: pj.Name, Input: pj.Input})
		case "tool-result":
			var output prompt.ToolOutput
			if pj.Output != nil {
				output = *pj.Output
			}
			m.Parts = append(m.Parts, ToolResultPart{CallID: pj.CallID, Name: pj.Name, Output: output})
		default:
			return fmt.Errorf("unknown part type %q", pj.Type)
		}
	}
	return nil
}
