package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// StructuralError reports a tree that violates a nesting invariant
type StructuralError struct {
	Path   string
	ID     string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("structural error at %s (id %q): %s", e.Path, e.ID, e.Reason)
	}
	return fmt.Sprintf("structural error at %s: %s", e.Path, e.Reason)
}

// Validate checks a finished tree before fitting or flattening:
// no message may contain another message at any depth, and tool-call,
// tool-result and reasoning leaves must have no children.
func Validate(root *Node) error {
	if root == nil {
		return &StructuralError{Path: "root", Reason: "nil root"}
	}
	return validate(root, []string{"root"}, false)
}

func validate(n *Node, path []string, inMessage bool) error {
	if _, ok := n.kind.(Message); ok {
		if inMessage {
			return &StructuralError{Path: strings.Join(path, "/"), ID: n.id, Reason: "message nested inside another message"}
		}
		inMessage = true
	}
	if IsLeaf(n.kind) && len(n.children) > 0 {
		return &StructuralError{
			Path:   strings.Join(path, "/"),
			ID:     n.id,
			Reason: fmt.Sprintf("%s node must not have children", KindName(n.kind)),
		}
	}

	for i, c := range n.children {
		switch c := c.(type) {
		case Text:
		case *Node:
			childPath := append(path, strconv.Itoa(i))
			if c == nil {
				return &StructuralError{Path: strings.Join(childPath, "/"), Reason: "nil child node"}
			}
			if err := validate(c, childPath, inMessage); err != nil {
				return err
			}
		default:
			return &StructuralError{Path: strings.Join(path, "/"), ID: n.id, Reason: fmt.Sprintf("unsupported child type %T", c)}
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		if child, ok := c.(*Node); ok {
			Walk(child, fn)
		}
	}
}
