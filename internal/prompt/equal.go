package prompt

import "reflect"

// Equal reports whether two trees are structurally identical. Strategies are
// compared by presence only since functions have no identity in Go.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.priority != b.priority || a.id != b.id {
		return false
	}
	if (a.strategy == nil) != (b.strategy == nil) {
		return false
	}
	if !reflect.DeepEqual(a.kind, b.kind) {
		return false
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !equalChild(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

func equalChild(a, b Child) bool {
	switch a := a.(type) {
	case Text:
		bt, ok := b.(Text)
		return ok && a == bt
	case *Node:
		bn, ok := b.(*Node)
		return ok && Equal(a, bn)
	default:
		return false
	}
}
